package compactor

import "fmt"

// Script builds the DiskPart command sequence for one VHD. The disk is
// attached read-only: compaction rewrites the container file, not the
// filesystem inside it.
func Script(vhdPath string) string {
	return fmt.Sprintf(`select vdisk file="%s"
attach vdisk readonly
compact vdisk
detach vdisk
exit
`, vhdPath)
}

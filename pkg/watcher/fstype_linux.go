//go:build linux

package watcher

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// statfs f_type magic numbers, see statfs(2).
const (
	magicNFS   = 0x6969
	magicSMB   = 0x517B
	magicCIFS  = 0xFF534D42
	magicSMB2  = 0xFE534D42
	magicFUSE  = 0x65735546
	magic9P    = 0x01021997
	magicAFS   = 0x5346414F
	magicCephF = 0x00C36400
)

func detectFilesystemType(path string) FilesystemType {
	var st unix.Statfs_t
	p := path
	for {
		err := unix.Statfs(p, &st)
		if err == nil {
			break
		}
		parent := filepath.Dir(p)
		if parent == p {
			return FSTypeUnknown
		}
		p = parent
	}

	switch uint32(st.Type) {
	case magicNFS, magicAFS, magicCephF, magic9P:
		return FSTypeNFS
	case magicSMB, magicCIFS, magicSMB2:
		return FSTypeSMB
	case magicFUSE:
		// sshfs mounts are FUSE; statfs alone can't tell them apart.
		return FSTypeFUSE
	default:
		return FSTypeLocal
	}
}

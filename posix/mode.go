package posix

import "io/fs"

// ModeString renders a file mode the way `ls -l` does: one type character followed by
// three rwx triplets, with setuid, setgid and sticky bits folded into the execute positions.
func ModeString(mode fs.FileMode) string {
	buf := []byte("----------")
	buf[0] = typeChar(mode)

	const rwx = "rwxrwxrwx"
	perm := mode.Perm()
	for i := 0; i < 9; i++ {
		if perm&(1<<uint(8-i)) != 0 {
			buf[i+1] = rwx[i]
		}
	}

	special := func(pos int, set bool, lower, upper byte) {
		if !set {
			return
		}
		if buf[pos] == 'x' {
			buf[pos] = lower
		} else {
			buf[pos] = upper
		}
	}
	special(3, mode&fs.ModeSetuid != 0, 's', 'S')
	special(6, mode&fs.ModeSetgid != 0, 's', 'S')
	special(9, mode&fs.ModeSticky != 0, 't', 'T')

	return string(buf)
}

func typeChar(mode fs.FileMode) byte {
	switch {
	case mode&fs.ModeDir != 0:
		return 'd'
	case mode&fs.ModeSymlink != 0:
		return 'l'
	case mode&fs.ModeCharDevice != 0:
		return 'c'
	case mode&fs.ModeDevice != 0:
		return 'b'
	case mode&fs.ModeNamedPipe != 0:
		return 'p'
	case mode&fs.ModeSocket != 0:
		return 's'
	default:
		return '-'
	}
}

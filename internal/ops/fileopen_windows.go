//go:build windows

package ops

import (
	"io"
	"os"
	"syscall"
	"unsafe"

	"github.com/hpungsan/chatctx/internal/errors"
)

const (
	movefileReplaceExisting = 0x1
	movefileWriteThrough    = 0x8
)

var (
	modkernel32     = syscall.NewLazyDLL("kernel32.dll")
	procMoveFileExW = modkernel32.NewProc("MoveFileExW")
)

// openFileNoFollow opens a file for writing.
// O_NOFOLLOW is not available on Windows; the output directory is still
// checked for symlinks before any write.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// readFileNoFollow reads a whole source document.
func readFileNoFollow(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// replaceFile uses MoveFileExW with REPLACE_EXISTING|WRITE_THROUGH, since
// os.Rename refuses to overwrite an existing extract from an earlier run.
func replaceFile(tmpPath, dest string) error {
	fromp, err := syscall.UTF16PtrFromString(tmpPath)
	if err != nil {
		return err
	}
	top, err := syscall.UTF16PtrFromString(dest)
	if err != nil {
		return err
	}
	r1, _, e1 := procMoveFileExW.Call(
		uintptr(unsafe.Pointer(fromp)),
		uintptr(unsafe.Pointer(top)),
		uintptr(movefileReplaceExisting|movefileWriteThrough),
	)
	if r1 == 0 {
		if e1 != nil && e1 != syscall.Errno(0) {
			return e1
		}
		return syscall.EINVAL
	}
	return nil
}

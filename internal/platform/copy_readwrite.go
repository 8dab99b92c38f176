package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// copyReadWrite copies data using pread/pwrite, one chunk at a time.
//
//nolint:gosec // G115: fd values are small non-negative integers
func copyReadWrite(params CopyFileParams, offset int64) (CopyResult, error) {
	srcFd, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer srcFd.Close()

	buf := make([]byte, chunkSize(params))
	srcRawFd := int(srcFd.Fd())
	dstRawFd := int(params.DstFd.Fd())
	totalWritten := offset

	for {
		n, err := unix.Pread(srcRawFd, buf, offset)
		if err != nil {
			return CopyResult{BytesWritten: totalWritten, Method: ReadWrite}, err
		}
		if n == 0 {
			break
		}

		written := 0
		for written < n {
			w, err := unix.Pwrite(dstRawFd, buf[written:n], offset+int64(written))
			if err != nil {
				return CopyResult{BytesWritten: totalWritten + int64(written), Method: ReadWrite}, err
			}
			written += w
		}

		offset += int64(n)
		totalWritten += int64(n)
		if err := notify(params, int64(n)); err != nil {
			return CopyResult{BytesWritten: totalWritten, Method: ReadWrite}, err
		}
	}

	return CopyResult{BytesWritten: totalWritten, Method: ReadWrite}, nil
}

// CopyReadWrite is the exported version for use by other packages during testing.
func CopyReadWrite(params CopyFileParams) (CopyResult, error) {
	return copyReadWrite(params, 0)
}

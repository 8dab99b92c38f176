//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// CopyFile copies with copy_file_range(2) in chunks, falling through to
// pread/pwrite when the kernel or filesystem refuses. A fallback resumes at
// the offset already reached so progress callbacks never double count.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	preallocate(params.DstFd, params.SrcSize)

	result, err := copyFileRange(params)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) {
		return result, err
	}

	return copyReadWrite(params, result.BytesWritten)
}

//nolint:gosec // G115: fd values are small non-negative integers
func copyFileRange(params CopyFileParams) (CopyResult, error) {
	srcFd, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer srcFd.Close()

	chunk := int(chunkSize(params))
	var roff, woff int64
	var totalWritten int64
	for {
		n, err := unix.CopyFileRange(int(srcFd.Fd()), &roff, int(params.DstFd.Fd()), &woff, chunk, 0)
		if err != nil {
			return CopyResult{BytesWritten: totalWritten, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		totalWritten += int64(n)
		if err := notify(params, int64(n)); err != nil {
			return CopyResult{BytesWritten: totalWritten, Method: CopyFileRange}, err
		}
	}

	return CopyResult{BytesWritten: totalWritten, Method: CopyFileRange}, nil
}

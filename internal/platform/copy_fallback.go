//go:build !linux

package platform

// CopyFile falls back to read/write on platforms without copy_file_range.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	preallocate(params.DstFd, params.SrcSize)
	return copyReadWrite(params, 0)
}

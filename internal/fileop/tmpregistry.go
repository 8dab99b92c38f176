package fileop

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

const tmpSuffix = ".spacetask-tmp"

// globalTmpRegistry tracks tmp files of copies in flight so an interrupted
// process can remove them on the way out.
var globalTmpRegistry = &tmpRegistry{}

type tmpRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func tmpName(base string) string {
	return fmt.Sprintf(".%s.%s%s", base, uuid.New().String()[:8], tmpSuffix)
}

func registerTmp(path string) {
	globalTmpRegistry.mu.Lock()
	defer globalTmpRegistry.mu.Unlock()
	if globalTmpRegistry.paths == nil {
		globalTmpRegistry.paths = make(map[string]struct{})
	}
	globalTmpRegistry.paths[path] = struct{}{}
}

func deregisterTmp(path string) {
	globalTmpRegistry.mu.Lock()
	defer globalTmpRegistry.mu.Unlock()
	delete(globalTmpRegistry.paths, path)
}

// PendingTmpFiles returns the number of tmp files currently registered.
func PendingTmpFiles() int {
	globalTmpRegistry.mu.Lock()
	defer globalTmpRegistry.mu.Unlock()
	return len(globalTmpRegistry.paths)
}

// CleanupTmpFiles removes all registered tmp files.
func CleanupTmpFiles() {
	globalTmpRegistry.mu.Lock()
	paths := make([]string, 0, len(globalTmpRegistry.paths))
	for p := range globalTmpRegistry.paths {
		paths = append(paths, p)
	}
	globalTmpRegistry.paths = nil
	globalTmpRegistry.mu.Unlock()

	for _, p := range paths {
		_ = os.Remove(p)
	}
}

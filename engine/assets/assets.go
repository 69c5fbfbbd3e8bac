package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/quadcore/engine/assets/loaders"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer/metadata"
)

const changeQueueSize = 16

/**
 * @brief Front door to everything read from disk: textures, shader binaries
 * and, when enabled, change notifications for the resource directory.
 */
type AssetManager struct {
	resourceDir string
	images      *loaders.ImageLoader
	shaders     *loaders.ShaderLoader

	mutex    sync.Mutex
	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan string
}

func NewAssetManager() *AssetManager {
	return &AssetManager{
		images:  &loaders.ImageLoader{},
		shaders: &loaders.ShaderLoader{},
		changes: make(chan string, changeQueueSize),
		done:    make(chan struct{}),
	}
}

// Initialize sets the resource directory and optionally starts watching it.
func (am *AssetManager) Initialize(resourceDir string, watch bool) error {
	am.resourceDir = resourceDir
	if !watch {
		return nil
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = fsWatch
	if err := am.watchRecursive(resourceDir); err != nil {
		fsWatch.Close()
		am.fsnotify = nil
		return err
	}

	am.wg.Add(1)
	go am.start()
	core.LogInfo("watching %s for texture changes", resourceDir)
	return nil
}

// Decode implements the image decoder collaborator.
func (am *AssetManager) Decode(path string) (*metadata.ImageData, error) {
	return am.images.Decode(path)
}

// LoadBytecode reads a precompiled shader binary.
func (am *AssetManager) LoadBytecode(path string) ([]byte, error) {
	return am.shaders.LoadBytecode(path)
}

/**
 * @brief Paths, relative to the resource directory and slash separated, of
 * image files that were created or written. Closed on Shutdown.
 */
func (am *AssetManager) Changes() <-chan string {
	return am.changes
}

func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	close(am.changes)
	if am.fsnotify != nil {
		return am.fsnotify.Close()
	}
	return nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 && isImage(e.Name) {
				am.handleFileEvent(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (am *AssetManager) handleFileEvent(path string) {
	rel, err := filepath.Rel(am.resourceDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)
	select {
	case am.changes <- rel:
		core.LogDebug("asset changed: %s", rel)
	default:
		core.LogWarn("asset change queue full, dropping %s", rel)
	}
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-constbuffers/engine/assets/loaders"
	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"
)

const defaultReloadBuffer = 16

// LoadDirectory parses every material file directly inside dir, sorted by
// file name. Files that fail to parse are logged and skipped.
func LoadDirectory(dir string) ([]metadata.MaterialConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("func LoadDirectory - %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isMaterialFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	configs := make([]metadata.MaterialConfig, 0, len(names))
	for _, name := range names {
		cfg, err := loaders.LoadMaterialFile(filepath.Join(dir, name))
		if err != nil {
			core.LogError(err.Error())
			continue
		}
		configs = append(configs, *cfg)
	}
	return configs, nil
}

// MaterialWatcher publishes the definition of every material file created or
// written in the watched directories. Consumers drain Configs on their own
// thread.
type MaterialWatcher struct {
	fsnotify *fsnotify.Watcher
	configs  chan metadata.MaterialConfig

	mutex    sync.Mutex
	isClosed bool
	done     chan struct{}
	wg       sync.WaitGroup
}

func NewMaterialWatcher(bufferSize int) (*MaterialWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("func NewMaterialWatcher - %w", err)
	}
	if bufferSize <= 0 {
		bufferSize = defaultReloadBuffer
	}
	mw := &MaterialWatcher{
		fsnotify: fsWatch,
		configs:  make(chan metadata.MaterialConfig, bufferSize),
		done:     make(chan struct{}),
	}
	mw.wg.Add(1)
	go mw.start()
	return mw, nil
}

func (mw *MaterialWatcher) Configs() <-chan metadata.MaterialConfig {
	return mw.configs
}

// AddRecursive starts watching the named directory and all sub-directories.
func (mw *MaterialWatcher) AddRecursive(name string) error {
	mw.mutex.Lock()
	defer mw.mutex.Unlock()
	if mw.isClosed {
		return errors.New("material watcher already closed")
	}
	return mw.watchRecursive(name)
}

// Close stops the watcher goroutine and closes the Configs channel.
func (mw *MaterialWatcher) Close() error {
	mw.mutex.Lock()
	if mw.isClosed {
		mw.mutex.Unlock()
		return nil
	}
	mw.isClosed = true
	mw.mutex.Unlock()

	close(mw.done)
	mw.wg.Wait()
	close(mw.configs)
	return mw.fsnotify.Close()
}

func (mw *MaterialWatcher) start() {
	defer mw.wg.Done()
	for {
		select {
		case e, ok := <-mw.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					mw.mutex.Lock()
					if err := mw.watchRecursive(e.Name); err != nil {
						core.LogError("failed to watch '%s': %s", e.Name, err.Error())
					}
					mw.mutex.Unlock()
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 && isMaterialFile(e.Name) {
				mw.handleFileEvent(e.Name)
			}

		case err, ok := <-mw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-mw.done:
			return
		}
	}
}

// watchRecursive adds all directories under path to the watch list.
func (mw *MaterialWatcher) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return mw.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (mw *MaterialWatcher) handleFileEvent(path string) {
	cfg, err := loaders.LoadMaterialFile(path)
	if err != nil {
		core.LogError(err.Error())
		return
	}
	core.LogDebug("material file '%s' changed", path)
	select {
	case mw.configs <- *cfg:
	case <-mw.done:
	}
}

func isMaterialFile(path string) bool {
	return filepath.Ext(path) == loaders.MaterialFileExtension
}

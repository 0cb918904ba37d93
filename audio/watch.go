package audio

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/lixenwraith/quicksound/log"
)

// Watcher drops cached decodes when asset files change on disk
type Watcher struct {
	fw    *fsnotify.Watcher
	root  string
	cache *CachingDecoder

	changed chan string
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewWatcher watches root (non-recursive) and invalidates c on changes
func NewWatcher(root string, c *CachingDecoder) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create asset watcher: %w", err)
	}
	if err := fw.Add(root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	w := &Watcher{
		fw:      fw,
		root:    root,
		cache:   c,
		changed: make(chan string, 16),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Changed delivers invalidated locators; sends are dropped when nobody reads
func (w *Watcher) Changed() <-chan string {
	return w.changed
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			locator, err := filepath.Rel(w.root, ev.Name)
			if err != nil {
				continue
			}
			locator = filepath.ToSlash(locator)
			w.cache.Invalidate(locator)
			log.Debug(log.CatAudio, "Asset changed, cache entry dropped", "locator", locator, "op", ev.Op.String())

			select {
			case w.changed <- locator:
			default:
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warn(log.CatAudio, "Asset watcher error", "error", err)
		}
	}
}

// Close stops watching; safe to call more than once
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fw.Close()
		w.wg.Wait()
	})
	return err
}

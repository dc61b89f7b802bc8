package bankcfg

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"csv2ledger/internal/logging"
)

// Detection weights. Filename evidence is cheap and weak; content signatures
// and expected headers carry most of the decision.
const (
	filenameWeight = 0.2
	contentWeight  = 0.4
	headerWeight   = 0.4

	// ConfidentDetectionThreshold is the score at which a bank counts as
	// confidently detected rather than merely best-effort.
	ConfidentDetectionThreshold = 0.5
)

// Registry holds the loaded bank configs and answers detection queries. All
// reads work on an immutable snapshot; Reload swaps the snapshot atomically,
// so a watcher-triggered reload never disturbs in-flight processing.
type Registry struct {
	dir string

	mu     sync.RWMutex
	banks  map[string]*BankConfig
	global *BankConfig

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewRegistry loads all bank configs from dir.
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{dir: dir}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the config directory and swaps in the new snapshot.
func (r *Registry) Reload() error {
	banks, global, err := LoadDir(r.dir)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.banks = banks
	r.global = global
	r.mu.Unlock()
	log.WithField(logging.FieldCount, len(banks)).Debug("Bank configs loaded")
	return nil
}

// ListBanks returns the loaded bank names, sorted.
func (r *Registry) ListBanks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.banks))
	for name := range r.banks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetConfig returns the config for a bank, or nil when unknown.
func (r *Registry) GetConfig(name string) *BankConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.banks[name]
}

// Global returns the bank-independent fallback config, which may be nil.
func (r *Registry) Global() *BankConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.global
}

// DetectBank scores every bank against the filename, content sample and
// observed headers, and returns the best-scoring bank with a positive score.
// Equal scores fall back to the longest matching filename substring.
func (r *Registry) DetectBank(filename, contentSample string, headers []string) (string, float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bestName := ""
	bestScore := 0.0
	bestSubstr := -1
	for name, cfg := range r.banks {
		score := detectionScore(&cfg.Detection, filename, contentSample, headers) * cfg.Detection.ConfidenceWeight
		if score <= 0 {
			continue
		}
		substr := longestFilenameMatch(&cfg.Detection, filename)
		if score > bestScore || (score == bestScore && substr > bestSubstr) {
			bestName, bestScore, bestSubstr = name, score, substr
		}
	}
	return bestName, bestScore
}

// DetectByFilename is the quick pre-parse path: filename evidence only, ties
// broken by the longest matching substring.
func (r *Registry) DetectByFilename(filename string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bestName := ""
	bestLen := -1
	for name, cfg := range r.banks {
		l := longestFilenameMatch(&cfg.Detection, filename)
		if l > bestLen {
			bestName, bestLen = name, l
		}
	}
	return bestName, bestLen >= 0
}

// detectionScore applies the weighted scoring: any filename evidence counts
// as a full filename score, content and header scores are match fractions.
func detectionScore(d *Detection, filename, contentSample string, headers []string) float64 {
	fname := strings.ToLower(filepath.Base(filename))

	filenameScore := 0.0
	for _, p := range d.FilenamePatterns {
		if p != "" && strings.Contains(fname, strings.ToLower(p)) {
			filenameScore = 1.0
			break
		}
	}
	for _, re := range d.FilenameRegexes {
		if re.MatchString(fname) {
			filenameScore += 1.0
		}
	}

	contentScore := 0.0
	if len(d.ContentSignatures) > 0 {
		sample := strings.ToLower(contentSample)
		hits := 0
		for _, sig := range d.ContentSignatures {
			if sig != "" && strings.Contains(sample, strings.ToLower(sig)) {
				hits++
			}
		}
		contentScore = float64(hits) / float64(len(d.ContentSignatures))
	}

	headerScore := 0.0
	if len(d.RequiredHeaders) > 0 && len(headers) > 0 {
		lowered := make([]string, len(headers))
		for i, h := range headers {
			lowered[i] = strings.ToLower(strings.TrimSpace(h))
		}
		hits := 0
		for _, want := range d.RequiredHeaders {
			w := strings.ToLower(strings.TrimSpace(want))
			for _, h := range lowered {
				if h == w || strings.Contains(h, w) {
					hits++
					break
				}
			}
		}
		headerScore = float64(hits) / float64(len(d.RequiredHeaders))
	}

	return filenameScore*filenameWeight + contentScore*contentWeight + headerScore*headerWeight
}

// longestFilenameMatch returns the length of the longest filename substring
// pattern matching filename, or -1 when nothing matches.
func longestFilenameMatch(d *Detection, filename string) int {
	fname := strings.ToLower(filepath.Base(filename))
	best := -1
	for _, p := range d.FilenamePatterns {
		if p != "" && strings.Contains(fname, strings.ToLower(p)) && len(p) > best {
			best = len(p)
		}
	}
	for _, re := range d.FilenameRegexes {
		if m := re.FindString(fname); m != "" && len(m) > best {
			best = len(m)
		}
	}
	return best
}

// Watch starts reloading the registry whenever a .conf file in the config
// directory changes. Call Close to stop watching.
func (r *Registry) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return err
	}
	r.watcher = watcher
	r.done = make(chan struct{})

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ConfigExt) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				log.WithField(logging.FieldFile, event.Name).Info("Bank config changed, reloading")
				if err := r.Reload(); err != nil {
					log.WithError(err).Error("Bank config reload failed")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("Config watcher error")
			case <-r.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the config watcher if one is running.
func (r *Registry) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.done)
	err := r.watcher.Close()
	r.watcher = nil
	return err
}

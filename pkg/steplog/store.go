package steplog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arnavsurve/deskagent/pkg/imageutil"
	"github.com/arnavsurve/deskagent/pkg/types"
)

// Store hands out numbered command directories under a base directory.
type Store struct {
	BaseDir string

	mu   sync.Mutex
	next int
}

func NewStore(baseDir string) *Store {
	return &Store{BaseDir: baseDir, next: 1}
}

// Open creates command_<n>/ for the next command number and returns its log.
// Numbers already present on disk are skipped so earlier runs are not
// overwritten.
func (s *Store) Open(commandText string) (*CommandLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating command log directory: %w", err)
	}

	for {
		dir := filepath.Join(s.BaseDir, fmt.Sprintf("command_%d", s.next))
		n := s.next
		s.next++

		err := os.Mkdir(dir, 0755)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
		return &CommandLog{
			CommandNumber: n,
			CommandText:   commandText,
			Timestamp:     time.Now(),
			Errors:        []Entry{},
			dir:           dir,
		}, nil
	}
}

// FrameStore keeps the per-iteration screenshots of one run.
type FrameStore struct {
	Dir string
}

func NewFrameStore(baseDir, runID string) (*FrameStore, error) {
	dir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating screenshot directory: %w", err)
	}
	return &FrameStore{Dir: dir}, nil
}

// Save writes iter_NNN_before_action.png and returns its path.
func (f *FrameStore) Save(iteration int, frame *types.ScreenFrame) (string, error) {
	if frame == nil || frame.Image == nil {
		return "", fmt.Errorf("no frame to save")
	}
	path := filepath.Join(f.Dir, fmt.Sprintf("iter_%03d_before_action.png", iteration))
	if err := imageutil.SavePNG(path, frame.Image); err != nil {
		return "", err
	}
	return path, nil
}

// WriteRunSummary writes run.json next to the run's iteration frames.
func (f *FrameStore) WriteRunSummary(result *types.RunResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(f.Dir, "run.json"), data, 0644); err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}
	return nil
}

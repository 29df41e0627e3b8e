// Package fs persists allocator states through afs, so any afs backend (local
// disk, mem://, cloud storage) can hold them. Each state is a JSON snapshot
// <name>.json plus one JSON file per later delta under <name>.log/.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/service/dao"
	"github.com/viant/idmint/service/dao/criteria"
	"github.com/viant/idmint/service/dao/state"
)

const (
	snapshotExt = ".json"
	logExt      = ".log"
)

// Service implements a filesystem-based state storage.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
	versions map[string]uint64
}

var (
	_ state.Service   = (*Service)(nil)
	_ state.Compactor = (*Service)(nil)
)

// Save writes a full snapshot, rejecting versions that do not advance the
// stored one, and drops the deltas it covers.
func (s *Service) Save(ctx context.Context, snapshot *model.State) error {
	if snapshot == nil {
		return dao.ErrNilEntity
	}
	if snapshot.Name == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	version, err := s.version(ctx, snapshot.Name)
	switch {
	case err == nil:
		if err := dao.CheckVersion(version, snapshot.Version); err != nil {
			return fmt.Errorf("save state %s: %w", snapshot.Name, err)
		}
	case !errors.Is(err, dao.ErrNotFound):
		return err
	}
	return s.writeSnapshot(ctx, snapshot)
}

// Apply writes delta as the next log entry of its state.
func (s *Service) Apply(ctx context.Context, delta *model.Delta) error {
	if delta == nil {
		return dao.ErrNilEntity
	}
	if delta.Name == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	version, err := s.version(ctx, delta.Name)
	if err != nil {
		return fmt.Errorf("apply delta %d to %s: %w", delta.Version, delta.Name, err)
	}
	if err := dao.CheckNext(version, delta.Version); err != nil {
		return fmt.Errorf("apply delta %d to %s: %w", delta.Version, delta.Name, err)
	}
	if err := delta.Validate(delta.PoolSize); err != nil {
		return err
	}
	data, err := json.Marshal(delta)
	if err != nil {
		return fmt.Errorf("failed to marshal delta: %w", err)
	}
	logPath := s.logPath(delta.Name)
	if exists, _ := s.fs.Exists(ctx, logPath); !exists {
		if err := s.fs.Create(ctx, logPath, file.DefaultDirOsMode, true); err != nil {
			return fmt.Errorf("failed to create delta directory %s: %w", logPath, err)
		}
	}
	filePath := s.deltaPath(delta.Name, delta.Version)
	if err = s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save delta to file %s: %w", filePath, err)
	}
	s.versions[delta.Name] = delta.Version
	return nil
}

// Compact folds every delta of name into its snapshot.
func (s *Service) Compact(ctx context.Context, name string) error {
	if name == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.load(ctx, name)
	if err != nil {
		return err
	}
	return s.writeSnapshot(ctx, current)
}

// Load retrieves the snapshot of name with its deltas applied.
func (s *Service) Load(ctx context.Context, name string) (*model.State, error) {
	if name == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, name)
}

// version returns the latest stored version, loading the state on a cache miss.
func (s *Service) version(ctx context.Context, name string) (uint64, error) {
	if version, ok := s.versions[name]; ok {
		return version, nil
	}
	current, err := s.load(ctx, name)
	if err != nil {
		return 0, err
	}
	return current.Version, nil
}

func (s *Service) writeSnapshot(ctx context.Context, snapshot *model.State) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	filePath := s.statePath(snapshot.Name)
	if err = s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save state to file %s: %w", filePath, err)
	}
	s.versions[snapshot.Name] = snapshot.Version
	logPath := s.logPath(snapshot.Name)
	if exists, _ := s.fs.Exists(ctx, logPath); exists {
		if err := s.fs.Delete(ctx, logPath); err != nil {
			return fmt.Errorf("failed to drop compacted deltas %s: %w", logPath, err)
		}
	}
	return nil
}

func (s *Service) load(ctx context.Context, name string) (*model.State, error) {
	filePath := s.statePath(name)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if state exists: %w", err)
	}
	if !exists {
		delete(s.versions, name)
		return nil, fmt.Errorf("state %s: %w", name, dao.ErrNotFound)
	}
	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	var current model.State
	if err := json.Unmarshal(data, &current); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state data: %w", err)
	}
	deltas, err := s.deltas(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, delta := range deltas {
		if delta.Version <= current.Version {
			continue
		}
		if err := dao.CheckNext(current.Version, delta.Version); err != nil {
			return nil, fmt.Errorf("replay %s: %w", name, err)
		}
		if err := current.Apply(delta); err != nil {
			return nil, fmt.Errorf("replay %s: %w", name, err)
		}
	}
	s.versions[name] = current.Version
	return &current, nil
}

// deltas returns the logged deltas of name in version order.
func (s *Service) deltas(ctx context.Context, name string) ([]*model.Delta, error) {
	logPath := s.logPath(name)
	if exists, _ := s.fs.Exists(ctx, logPath); !exists {
		return nil, nil
	}
	objects, err := s.fs.List(ctx, logPath, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list deltas of %s: %w", name, err)
	}
	var deltas []*model.Delta
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), snapshotExt) {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("failed to read delta %s: %w", object.URL(), err)
		}
		delta := &model.Delta{}
		if err := json.Unmarshal(data, delta); err != nil {
			return nil, fmt.Errorf("failed to decode delta %s: %w", object.URL(), err)
		}
		deltas = append(deltas, delta)
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Version < deltas[j].Version })
	return deltas, nil
}

// Delete removes a state with its deltas.
func (s *Service) Delete(ctx context.Context, name string) error {
	if name == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.statePath(name)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check if state exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("state %s: %w", name, dao.ErrNotFound)
	}
	if err := s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	delete(s.versions, name)
	logPath := s.logPath(name)
	if exists, _ := s.fs.Exists(ctx, logPath); exists {
		if err := s.fs.Delete(ctx, logPath); err != nil {
			return fmt.Errorf("failed to delete deltas of %s: %w", name, err)
		}
	}
	return nil
}

// List returns all states matching parameters.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list state files: %w", err)
	}
	var states []*model.State
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), snapshotExt) {
			continue
		}
		current, err := s.load(ctx, strings.TrimSuffix(object.Name(), snapshotExt))
		if err != nil {
			log.Printf("idmint: read state %s: %v", object.URL(), err)
			continue
		}
		if !criteria.Match(current, parameters) {
			continue
		}
		states = append(states, current)
	}
	return states, nil
}

func (s *Service) statePath(name string) string {
	return url.Join(s.basePath, name+snapshotExt)
}

func (s *Service) logPath(name string) string {
	return url.Join(s.basePath, name+logExt)
}

func (s *Service) deltaPath(name string, version uint64) string {
	return url.Join(s.logPath(name), fmt.Sprintf("%020d%s", version, snapshotExt))
}

// New creates a filesystem state store rooted at basePath.
func New(basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	fs := afs.New()
	ctx := context.Background()
	basePath = url.Normalize(basePath, file.Scheme)
	exists, _ := fs.Exists(ctx, basePath)
	if !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	return &Service{basePath: basePath, fs: fs, versions: make(map[string]uint64)}, nil
}

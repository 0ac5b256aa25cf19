package employees

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
)

// Directory lists the employees of an external HR directory.
type Directory interface {
	ListDirectoryEmployees(ctx context.Context) ([]mariadb.DirectoryEmployee, error)
}

// SyncOptions tunes Sync.
type SyncOptions struct {
	Concurrency int // defaults to constants.DefaultSyncConcurrency
	OnLoaded    func(total int)
	OnProgress  func() // called once per directory entry, never concurrently
}

// SyncResult counts what Sync did.
type SyncResult struct {
	Total   int
	Created int
	Updated int
	Skipped int
	Errors  []error
}

// Sync imports the directory into the employee store. Entries are matched by
// email: new ones are created with the employee role, existing ones get their
// name and department refreshed. Invalid entries are skipped.
func (s *Service) Sync(ctx context.Context, dir Directory, opts SyncOptions) (*SyncResult, error) {
	entries, err := dir.ListDirectoryEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	if opts.OnLoaded != nil {
		opts.OnLoaded(len(entries))
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultSyncConcurrency
	}

	result := &SyncResult{Total: len(entries)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, entry := range entries {
		wg.Add(1)
		go func(entry mariadb.DirectoryEmployee) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			created, err := s.syncOne(ctx, entry)

			mu.Lock()
			switch {
			case errors.Is(err, errSkipped):
				result.Skipped++
			case err != nil:
				result.Errors = append(result.Errors, err)
			case created:
				result.Created++
			default:
				result.Updated++
			}
			if opts.OnProgress != nil {
				opts.OnProgress()
			}
			mu.Unlock()
		}(entry)
	}
	wg.Wait()

	log.Printf("Directory sync: %d entries, %d created, %d updated, %d skipped, %d errors",
		result.Total, result.Created, result.Updated, result.Skipped, len(result.Errors))
	return result, nil
}

var errSkipped = errors.New("skipped")

func (s *Service) syncOne(ctx context.Context, entry mariadb.DirectoryEmployee) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	e, err := database.NewEmployee(entry.Name, entry.Email, entry.Department, database.RoleEmployee)
	if err != nil {
		log.Printf("Directory sync: skipping %q: %v", sanitizeForLog(entry.Email), err)
		return false, errSkipped
	}
	created, err := s.store.UpsertDirectoryEmployee(ctx, e)
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", e.Email, err)
	}
	return created, nil
}

package employees

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/memory"
)

func TestCreate(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateInput
		wantErr error
	}{
		{"valid", CreateInput{Name: "Jiří Novák", Email: "Jiri@Example.com", Department: "Ops", Password: "correct-horse"}, nil},
		{"no password", CreateInput{Name: "Eva", Email: "eva@example.com", Department: "Ops"}, nil},
		{"short password", CreateInput{Name: "Eva", Email: "eva@example.com", Department: "Ops", Password: "short"}, ErrWeakPassword},
		{"bad email", CreateInput{Name: "Eva", Email: "eva", Department: "Ops"}, database.ErrInvalidEmail},
		{"no name", CreateInput{Email: "eva@example.com", Department: "Ops"}, database.ErrInvalidName},
		{"bad role", CreateInput{Name: "Eva", Email: "eva@example.com", Department: "Ops", Role: "root"}, database.ErrInvalidRole},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(memory.NewStore())
			e, err := svc.Create(context.Background(), tc.in)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("Create() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if e.Role != database.RoleEmployee {
				t.Errorf("Role = %s, want employee", e.Role)
			}
			if tc.in.Password != "" && (e.PasswordHash == "" || e.PasswordHash == tc.in.Password) {
				t.Errorf("PasswordHash = %q, want a bcrypt hash", e.PasswordHash)
			}
		})
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc := NewService(memory.NewStore())
	ctx := context.Background()
	if _, err := svc.Create(ctx, CreateInput{Name: "Eva", Email: "eva@example.com", Department: "Ops"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, err := svc.Create(ctx, CreateInput{Name: "Eva Two", Email: "EVA@example.com", Department: "Ops"})
	if !errors.Is(err, database.ErrDuplicateEmail) {
		t.Errorf("Create() error = %v, want ErrDuplicateEmail", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(memory.NewStore())
	ctx := context.Background()
	created, err := svc.Create(ctx, CreateInput{Name: "Admin", Email: "admin@example.com", Department: "IT", Role: database.RoleAdmin, Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Name: "Kiosk Only", Email: "kiosk@example.com", Department: "IT"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "admin@example.com", "s3cret-pass", nil},
		{"email case and spaces", "  Admin@Example.com ", "s3cret-pass", nil},
		{"wrong password", "admin@example.com", "nope", ErrInvalidCredentials},
		{"unknown email", "ghost@example.com", "s3cret-pass", ErrInvalidCredentials},
		{"malformed email", "admin", "s3cret-pass", ErrInvalidCredentials},
		{"no password set", "kiosk@example.com", "", ErrInvalidCredentials},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e, err := svc.Authenticate(ctx, tc.email, tc.password)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr == nil && (e.ID != created.ID || !e.IsAdmin()) {
				t.Errorf("Authenticate() = %s/%s, want %s/admin", e.ID, e.Role, created.ID)
			}
		})
	}
}

func TestGet(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store)
	ctx := context.Background()
	e, err := svc.Create(ctx, CreateInput{Name: "Eva", Email: "eva@example.com", Department: "Ops"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.SetFaceEmbedding(ctx, e.ID, []float32{1, 0}, e.CreatedAt); err != nil {
		t.Fatalf("SetFaceEmbedding() error = %v", err)
	}

	got, err := svc.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FaceEmbedding != nil || got.FaceRegisteredAt == nil {
		t.Errorf("Get() embedding = %v, registered = %v, want embedding stripped and timestamp kept", got.FaceEmbedding, got.FaceRegisteredAt)
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSearch(t *testing.T) {
	svc := NewService(memory.NewStore())
	ctx := context.Background()
	for _, in := range []CreateInput{
		{Name: "Jiří Novák", Email: "jiri@example.com", Department: "Výroba"},
		{Name: "Anna-Marie Dvořáková", Email: "anna@example.com", Department: "Sales"},
		{Name: "Petr Svoboda", Email: "petr@corp.example.com", Department: "Sales"},
	} {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("Create(%s) error = %v", in.Name, err)
		}
	}

	tests := []struct {
		q    string
		want int
	}{
		{"", 3},
		{"novak", 1},
		{"NOVÁK", 1},
		{"anna marie", 1},
		{"corp.example", 1},
		{"sales", 2},
		{"vyroba", 1},
		{"nobody", 0},
	}
	for _, tc := range tests {
		got, err := svc.Search(ctx, tc.q)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", tc.q, err)
		}
		if len(got) != tc.want {
			t.Errorf("Search(%q) = %d results, want %d", tc.q, len(got), tc.want)
		}
	}
}

type fakeDirectory struct {
	entries []mariadb.DirectoryEmployee
	err     error
}

func (f *fakeDirectory) ListDirectoryEmployees(context.Context) ([]mariadb.DirectoryEmployee, error) {
	return f.entries, f.err
}

func TestSync(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store)
	ctx := context.Background()
	if _, err := svc.Create(ctx, CreateInput{Name: "Old Name", Email: "eva@example.com", Department: "Old"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dir := &fakeDirectory{entries: []mariadb.DirectoryEmployee{
		{Name: "Eva Nová", Email: "eva@example.com", Department: "Ops"},
		{Name: "Adam", Email: "adam@example.com", Department: "IT"},
		{Name: "Bea", Email: "bea@example.com", Department: "IT"},
		{Name: "No Department", Email: "nd@example.com"},
		{Name: "", Email: "blank@example.com", Department: "IT"},
	}}

	var loaded, progress int
	res, err := svc.Sync(ctx, dir, SyncOptions{
		Concurrency: 2,
		OnLoaded:    func(n int) { loaded = n },
		OnProgress:  func() { progress++ },
	})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if res.Created != 2 || res.Updated != 1 || res.Skipped != 2 || len(res.Errors) != 0 {
		t.Errorf("Sync() = %+v, want 2 created, 1 updated, 2 skipped", res)
	}
	if loaded != 5 {
		t.Errorf("OnLoaded total = %d, want 5", loaded)
	}
	if progress != 5 {
		t.Errorf("OnProgress calls = %d, want 5", progress)
	}

	eva, _ := store.GetEmployeeByEmail(ctx, "eva@example.com")
	if eva.Name != "Eva Nová" || eva.Department != "Ops" {
		t.Errorf("updated employee = %s/%s, want Eva Nová/Ops", eva.Name, eva.Department)
	}
}

func TestSync_DirectoryError(t *testing.T) {
	svc := NewService(memory.NewStore())
	boom := errors.New("connection refused")
	if _, err := svc.Sync(context.Background(), &fakeDirectory{err: boom}, SyncOptions{}); !errors.Is(err, boom) {
		t.Errorf("Sync() error = %v, want %v", err, boom)
	}
}

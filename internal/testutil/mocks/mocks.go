package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avatarctic/petportrait/internal/core/domain/audit"
	"github.com/avatarctic/petportrait/internal/core/domain/generation"
	"github.com/avatarctic/petportrait/internal/core/domain/ratelimit"
	"github.com/avatarctic/petportrait/internal/core/ports"
)

// ImageProviderMock records every call so tests can assert the provider was
// (or was not) contacted.
type ImageProviderMock struct {
	GenerateFn func(ctx context.Context, call *generation.ProviderCall) (generation.ProviderResult, error)
	EditFn     func(ctx context.Context, call *generation.ProviderCall) (generation.ProviderResult, error)

	mu            sync.Mutex
	GenerateCalls []*generation.ProviderCall
	EditCalls     []*generation.ProviderCall
}

func (m *ImageProviderMock) Name() string { return "mock-image" }

func (m *ImageProviderMock) Generate(ctx context.Context, call *generation.ProviderCall) (generation.ProviderResult, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, call)
	m.mu.Unlock()
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, call)
	}
	return &generation.ImageURL{URL: "https://images.example/generated.png"}, nil
}

func (m *ImageProviderMock) Edit(ctx context.Context, call *generation.ProviderCall) (generation.ProviderResult, error) {
	m.mu.Lock()
	m.EditCalls = append(m.EditCalls, call)
	m.mu.Unlock()
	if m.EditFn != nil {
		return m.EditFn(ctx, call)
	}
	return &generation.ImageURL{URL: "https://images.example/edited.png"}, nil
}

// Calls is the total number of provider calls of either kind.
func (m *ImageProviderMock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GenerateCalls) + len(m.EditCalls)
}

type ModerationProviderMock struct {
	ModerateFn func(ctx context.Context, in *ports.ModerationInput) (*ports.ModerationVerdict, error)

	mu    sync.Mutex
	Calls int
}

func (m *ModerationProviderMock) Name() string { return "mock-moderation" }

func (m *ModerationProviderMock) Moderate(ctx context.Context, in *ports.ModerationInput) (*ports.ModerationVerdict, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.ModerateFn != nil {
		return m.ModerateFn(ctx, in)
	}
	return &ports.ModerationVerdict{}, nil
}

func (m *ModerationProviderMock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

type ModerationGateMock struct {
	ModerateFn func(ctx context.Context, image []byte, imageContentType, text string) []string
}

func (m *ModerationGateMock) Moderate(ctx context.Context, image []byte, imageContentType, text string) []string {
	if m.ModerateFn != nil {
		return m.ModerateFn(ctx, image, imageContentType, text)
	}
	return nil
}

type RateLimitRepositoryMock struct {
	HitFn     func(ctx context.Context, identity string, limit int, window time.Duration, now time.Time) (bool, ratelimit.Window, error)
	EntriesFn func(ctx context.Context) ([]ratelimit.Entry, error)
}

func (m *RateLimitRepositoryMock) Hit(ctx context.Context, identity string, limit int, window time.Duration, now time.Time) (bool, ratelimit.Window, error) {
	if m.HitFn != nil {
		return m.HitFn(ctx, identity, limit, window, now)
	}
	return true, ratelimit.Window{Count: 1, WindowStart: now}, nil
}

func (m *RateLimitRepositoryMock) Entries(ctx context.Context) ([]ratelimit.Entry, error) {
	if m.EntriesFn != nil {
		return m.EntriesFn(ctx)
	}
	return nil, nil
}

type RateLimiterServiceMock struct {
	CheckFn func(ctx context.Context, identity string) (ratelimit.Decision, error)
	StatsFn func(ctx context.Context) (*ratelimit.Stats, error)
}

func (m *RateLimiterServiceMock) Check(ctx context.Context, identity string) (ratelimit.Decision, error) {
	if m.CheckFn != nil {
		return m.CheckFn(ctx, identity)
	}
	return ratelimit.Decision{Allowed: true, Count: 1, Limit: 10}, nil
}

func (m *RateLimiterServiceMock) Stats(ctx context.Context) (*ratelimit.Stats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx)
	}
	return &ratelimit.Stats{Entries: []ratelimit.EntryStats{}}, nil
}

type GenerationServiceMock struct {
	GenerateFn func(ctx context.Context, req *generation.Request) (*generation.Result, error)
}

func (m *GenerationServiceMock) Generate(ctx context.Context, req *generation.Request) (*generation.Result, error) {
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, req)
	}
	return nil, fmt.Errorf("not implemented")
}

type GenerationAuditRepositoryMock struct {
	CreateFn func(ctx context.Context, rec *audit.GenerationRecord) error
	ListFn   func(ctx context.Context, filter *audit.RecordFilter) ([]*audit.GenerationRecord, error)
	CountFn  func(ctx context.Context, filter *audit.RecordFilter) (int, error)
}

func (m *GenerationAuditRepositoryMock) Create(ctx context.Context, rec *audit.GenerationRecord) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, rec)
	}
	return nil
}

func (m *GenerationAuditRepositoryMock) List(ctx context.Context, filter *audit.RecordFilter) ([]*audit.GenerationRecord, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	return nil, nil
}

func (m *GenerationAuditRepositoryMock) Count(ctx context.Context, filter *audit.RecordFilter) (int, error) {
	if m.CountFn != nil {
		return m.CountFn(ctx, filter)
	}
	return 0, nil
}

// AuditServiceMock keeps recorded generations in memory.
type AuditServiceMock struct {
	EnabledValue      bool
	ListGenerationsFn func(ctx context.Context, filter *audit.RecordFilter) ([]*audit.GenerationRecord, int, error)

	mu      sync.Mutex
	Records []*audit.GenerationRecord
}

func (m *AuditServiceMock) RecordGeneration(_ context.Context, rec *audit.GenerationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, rec)
}

func (m *AuditServiceMock) ListGenerations(ctx context.Context, filter *audit.RecordFilter) ([]*audit.GenerationRecord, int, error) {
	if m.ListGenerationsFn != nil {
		return m.ListGenerationsFn(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Records, len(m.Records), nil
}

func (m *AuditServiceMock) Enabled() bool { return m.EnabledValue }

// Last returns the most recent record, or nil.
func (m *AuditServiceMock) Last() *audit.GenerationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Records) == 0 {
		return nil
	}
	return m.Records[len(m.Records)-1]
}

type HealthCheckerMock struct {
	NameValue string
	CheckFn   func(ctx context.Context) error
}

func (m *HealthCheckerMock) Name() string { return m.NameValue }

func (m *HealthCheckerMock) Check(ctx context.Context) error {
	if m.CheckFn != nil {
		return m.CheckFn(ctx)
	}
	return nil
}

// CacheMock is a map-backed ports.Cache with injectable failures.
type CacheMock struct {
	GetErr error
	SetErr error

	mu   sync.Mutex
	data map[string][]byte
}

func (m *CacheMock) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *CacheMock) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = value
	return nil
}

func (m *CacheMock) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *CacheMock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

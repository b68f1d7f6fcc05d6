package registration

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

var _ Repository = &mockRegistrationRepository{}

type mockRegistrationRepository struct {
	CreateRegistrationFunc              func(ctx context.Context, registration Registration) error
	UpdateRegistrationFunc              func(ctx context.Context, registration Registration) error
	GetRegistrationFunc                 func(ctx context.Context, id uuid.UUID) (Registration, error)
	GetRegistrationByExternalUserIDFunc func(ctx context.Context, externalUserID string) (Registration, error)
	GetAllRegistrationsFunc             func(ctx context.Context, limit int32, cursor *string) (GetAllRegistrationsResponse, error)
}

func (m *mockRegistrationRepository) CreateRegistration(ctx context.Context, registration Registration) error {
	if m.CreateRegistrationFunc != nil {
		return m.CreateRegistrationFunc(ctx, registration)
	}
	return nil
}

func (m *mockRegistrationRepository) UpdateRegistration(ctx context.Context, registration Registration) error {
	if m.UpdateRegistrationFunc != nil {
		return m.UpdateRegistrationFunc(ctx, registration)
	}
	return nil
}

func (m *mockRegistrationRepository) GetRegistration(ctx context.Context, id uuid.UUID) (Registration, error) {
	if m.GetRegistrationFunc != nil {
		return m.GetRegistrationFunc(ctx, id)
	}
	return Registration{}, NewRegistrationDoesNotExistsError("not found", nil)
}

func (m *mockRegistrationRepository) GetRegistrationByExternalUserID(ctx context.Context, externalUserID string) (Registration, error) {
	if m.GetRegistrationByExternalUserIDFunc != nil {
		return m.GetRegistrationByExternalUserIDFunc(ctx, externalUserID)
	}
	return Registration{}, NewRegistrationDoesNotExistsError("not found", nil)
}

func (m *mockRegistrationRepository) GetAllRegistrations(ctx context.Context, limit int32, cursor *string) (GetAllRegistrationsResponse, error) {
	if m.GetAllRegistrationsFunc != nil {
		return m.GetAllRegistrationsFunc(ctx, limit, cursor)
	}
	return GetAllRegistrationsResponse{}, nil
}

// memoryRepository mirrors the store's guarantees: one registration per
// external user ID and optimistic versioning on update.
type memoryRepository struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]Registration
	byExternal map[string]uuid.UUID
}

var _ Repository = &memoryRepository{}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		byID:       map[uuid.UUID]Registration{},
		byExternal: map[string]uuid.UUID{},
	}
}

func (m *memoryRepository) CreateRegistration(ctx context.Context, registration Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[registration.ID]; ok {
		return NewRegistrationAlreadyExistsError("exists", nil)
	}
	if registration.HasExternalUser() {
		if _, ok := m.byExternal[registration.ExternalUserID]; ok {
			return NewExternalUserAlreadyRegisteredError(registration.ExternalUserID, nil)
		}
		m.byExternal[registration.ExternalUserID] = registration.ID
	}
	m.byID[registration.ID] = registration
	return nil
}

func (m *memoryRepository) UpdateRegistration(ctx context.Context, registration Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.byID[registration.ID]
	if !ok || existing.Version != registration.Version-1 {
		return NewVersionConflictError("conflict", nil)
	}
	m.byID[registration.ID] = registration
	return nil
}

func (m *memoryRepository) GetRegistration(ctx context.Context, id uuid.UUID) (Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.byID[id]
	if !ok {
		return Registration{}, NewRegistrationDoesNotExistsError("not found", nil)
	}
	return reg, nil
}

func (m *memoryRepository) GetRegistrationByExternalUserID(ctx context.Context, externalUserID string) (Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byExternal[externalUserID]
	if !ok {
		return Registration{}, NewRegistrationDoesNotExistsError("not found", nil)
	}
	return m.byID[id], nil
}

func (m *memoryRepository) GetAllRegistrations(ctx context.Context, limit int32, cursor *string) (GetAllRegistrationsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]Registration, 0, len(m.byID))
	for _, reg := range m.byID {
		all = append(all, reg)
	}
	slices.SortFunc(all, func(a, b Registration) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return GetAllRegistrationsResponse{Data: all}, nil
}

func (m *memoryRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

package mocks

import (
	"context"

	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockBuildRepository is a mock implementation of persistence.BuildRepository interface.
type MockBuildRepository struct {
	mock.Mock
}

func (m *MockBuildRepository) List(ctx context.Context) ([]*models.LineBuild, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.LineBuild), args.Error(1)
}

func (m *MockBuildRepository) Get(ctx context.Context, id string) (*models.LineBuild, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.LineBuild), args.Error(1)
}

func (m *MockBuildRepository) Create(ctx context.Context, build *models.LineBuild) error {
	args := m.Called(ctx, build)

	return args.Error(0)
}

func (m *MockBuildRepository) Update(ctx context.Context, build *models.LineBuild, expectedVersion int) error {
	args := m.Called(ctx, build, expectedVersion)

	return args.Error(0)
}

func (m *MockBuildRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	buildRepo *MockBuildRepository
}

// NewMockPersistence creates a new MockPersistence with a mock build repository.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		buildRepo: &MockBuildRepository{},
	}
}

// GetMockBuildRepository returns the underlying mock build repository for setting up expectations.
func (m *MockPersistence) GetMockBuildRepository() *MockBuildRepository {
	return m.buildRepo
}

func (m *MockPersistence) BuildRepository() persistence.BuildRepository {
	return m.buildRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

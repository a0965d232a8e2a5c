package realtime_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"questfeed/backend/internal/models"
	"questfeed/backend/internal/realtime"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) TouchLastActive(userID string, ts time.Time) error {
	args := m.Called(userID, ts)
	return args.Error(0)
}

func (m *MockStorage) SaveConversation(conv *models.Conversation) error {
	args := m.Called(conv)
	return args.Error(0)
}

func (m *MockStorage) IsParticipant(conversationID, userID string) (bool, error) {
	args := m.Called(conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) AddOnlineUser(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) RemoveOnlineUser(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) GetOnlineUsers() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockClient is a transport-free test double for the realtime.Client
// interface. Events the hub sends land in Recv.
type MockClient struct {
	connID   string
	userID   string
	username string

	// Recv is buffered so hub broadcasts never see this client as a slow
	// consumer in tests.
	Recv chan models.Envelope

	closed bool
}

func newMockClient(connID, userID, username string) *MockClient {
	return &MockClient{
		connID:   connID,
		userID:   userID,
		username: username,
		Recv:     make(chan models.Envelope, 32),
	}
}

func (c *MockClient) GetConnID() string   { return c.connID }
func (c *MockClient) GetUserID() string   { return c.userID }
func (c *MockClient) GetUsername() string { return c.username }

func (c *MockClient) GetSendChannel() chan<- models.Envelope { return c.Recv }

func (c *MockClient) Run() {}

func (c *MockClient) Close() {
	if !c.closed {
		c.closed = true
		close(c.Recv)
	}
}

// blockingBackplane parks every Publish until released, standing in for an
// unreachable Redis.
type blockingBackplane struct {
	release chan struct{}
}

func (b blockingBackplane) Publish(realtime.RemoteFrame) error {
	<-b.release
	return nil
}

func (b blockingBackplane) Listen(ctx context.Context, _ func(realtime.RemoteFrame)) {
	<-ctx.Done()
}

// drain empties and returns everything currently buffered.
func (c *MockClient) drain() []models.Envelope {
	var out []models.Envelope
	for {
		select {
		case env, ok := <-c.Recv:
			if !ok {
				return out
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

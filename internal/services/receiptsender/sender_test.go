package receiptsender

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/musiclands/festival-companion/internal/lib/smtp"
	"github.com/musiclands/festival-companion/internal/models"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

type MockSMTPWriter struct {
	mock.Mock

	written []byte
}

func (m *MockSMTPWriter) Write(p []byte) (n int, err error) {
	m.written = append(m.written, p...)
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func receiptBody(t *testing.T, simulated bool) []byte {
	t.Helper()

	receipt := models.ReceiptInfo{
		UserUID:       "user123",
		OfferingID:    "day_pass",
		TransactionID: "GPA.1234",
		PurchasedAt:   time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC),
		ExpiresAt:     time.Date(2025, 7, 5, 12, 0, 0, 0, time.UTC),
		Simulated:     simulated,
	}
	body, err := json.Marshal(receipt)
	require.NoError(t, err)
	return body
}

func TestService_SendReceipt(t *testing.T) {
	tests := []struct {
		name          string
		body          func(t *testing.T) []byte
		setupMocks    func(*MockTransport) *MockSMTPWriter
		expectedError bool
		errorMessage  string
		wantInLetter  []string
	}{
		{
			name: "success - send receipt email",
			body: func(t *testing.T) []byte { return receiptBody(t, false) },
			setupMocks: func(tr *MockTransport) *MockSMTPWriter {
				mockClient := new(MockSMTPClient)
				mockWriter := new(MockSMTPWriter)

				tr.On("GetSMTPUser").Return("receipts@musiclands.ai")
				tr.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "receipts@musiclands.ai").Return(nil).Once()
				mockClient.On("Rcpt", "ops@musiclands.ai").Return(nil).Once()
				mockClient.On("Data").Return(mockWriter, nil).Once()
				mockWriter.On("Write", mock.AnythingOfType("[]uint8")).Return(100, nil).Once()
				mockWriter.On("Close").Return(nil).Once()
				mockClient.On("Quit").Return(nil).Once()
				mockClient.On("Close").Return(nil).Once()
				return mockWriter
			},
			expectedError: false,
			wantInLetter:  []string{"Purchase confirmed: day_pass (GPA.1234)", "User: user123"},
		},
		{
			name: "simulated purchase is flagged in subject",
			body: func(t *testing.T) []byte { return receiptBody(t, true) },
			setupMocks: func(tr *MockTransport) *MockSMTPWriter {
				mockClient := new(MockSMTPClient)
				mockWriter := new(MockSMTPWriter)

				tr.On("GetSMTPUser").Return("receipts@musiclands.ai")
				tr.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "receipts@musiclands.ai").Return(nil).Once()
				mockClient.On("Rcpt", "ops@musiclands.ai").Return(nil).Once()
				mockClient.On("Data").Return(mockWriter, nil).Once()
				mockWriter.On("Write", mock.AnythingOfType("[]uint8")).Return(100, nil).Once()
				mockWriter.On("Close").Return(nil).Once()
				mockClient.On("Quit").Return(nil).Once()
				mockClient.On("Close").Return(nil).Once()
				return mockWriter
			},
			expectedError: false,
			wantInLetter:  []string{"[SIMULATED] Purchase confirmed", "Simulated: true"},
		},
		{
			name: "invalid JSON",
			body: func(_ *testing.T) []byte { return []byte(`invalid json`) },
			setupMocks: func(_ *MockTransport) *MockSMTPWriter {
				// No transport calls expected for invalid JSON
				return nil
			},
			expectedError: true,
			errorMessage:  "error unmarshalling receipt",
		},
		{
			name: "SMTP connection error",
			body: func(t *testing.T) []byte { return receiptBody(t, false) },
			setupMocks: func(tr *MockTransport) *MockSMTPWriter {
				tr.On("GetSMTPUser").Return("receipts@musiclands.ai")
				tr.On("Connect").Return(nil, errors.New("connection error")).Once()
				return nil
			},
			expectedError: true,
			errorMessage:  "connection error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			service := New(newNoopLogger(), transport, "ops@musiclands.ai")

			writer := tt.setupMocks(transport)

			err := service.SendReceipt(tt.body(t))

			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
			} else {
				assert.NoError(t, err)
				for _, want := range tt.wantInLetter {
					assert.Contains(t, string(writer.written), want)
				}
			}

			transport.AssertExpectations(t)
		})
	}
}

func TestService_SMTPErrorHandling(t *testing.T) {
	tests := []struct {
		name         string
		setupMocks   func(*MockTransport)
		errorMessage string
	}{
		{
			name: "SMTP Mail error",
			setupMocks: func(tr *MockTransport) {
				mockClient := new(MockSMTPClient)

				tr.On("GetSMTPUser").Return("receipts@musiclands.ai")
				tr.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "receipts@musiclands.ai").Return(errors.New("mail error")).Once()
				mockClient.On("Close").Return(nil).Once()
			},
			errorMessage: "mail error",
		},
		{
			name: "SMTP Rcpt error",
			setupMocks: func(tr *MockTransport) {
				mockClient := new(MockSMTPClient)

				tr.On("GetSMTPUser").Return("receipts@musiclands.ai")
				tr.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "receipts@musiclands.ai").Return(nil).Once()
				mockClient.On("Rcpt", "ops@musiclands.ai").Return(errors.New("rcpt error")).Once()
				mockClient.On("Close").Return(nil).Once()
			},
			errorMessage: "rcpt error",
		},
		{
			name: "SMTP Data error",
			setupMocks: func(tr *MockTransport) {
				mockClient := new(MockSMTPClient)

				tr.On("GetSMTPUser").Return("receipts@musiclands.ai")
				tr.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "receipts@musiclands.ai").Return(nil).Once()
				mockClient.On("Rcpt", "ops@musiclands.ai").Return(nil).Once()
				mockClient.On("Data").Return(nil, errors.New("data error")).Once()
				mockClient.On("Close").Return(nil).Once()
			},
			errorMessage: "data error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			service := New(newNoopLogger(), transport, "ops@musiclands.ai")

			tt.setupMocks(transport)

			err := service.SendReceipt(receiptBody(t, false))

			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMessage)

			transport.AssertExpectations(t)
		})
	}
}

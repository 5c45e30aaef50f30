package contact

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/monitoring"
)

// Form is a contact form submission
type Form struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,address"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required,min=10"`
}

// LoginForm is the demo login form
type LoginForm struct {
	Email    string `json:"email" validate:"required,address"`
	Password string `json:"password" validate:"required,min=6"`
}

// Message is a stored contact submission
type Message struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Subject    string    `json:"subject"`
	Body       string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

// Receipt acknowledges a stored submission
type Receipt struct {
	ID     string `json:"id"`
	Notice string `json:"notice"`
}

const (
	ThankYouNotice = "Thank you for your message! We've received your inquiry and will respond within 24-48 hours."
	LoginNotice    = "Login successful! (This is a demo)"
)

// addressPattern is the lenient site-wide email check: something@something.something
// with no whitespace or extra @. The class widens \s to what browsers treat as space.
var addressPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

// fieldMessages are shown for any rule a field breaks
var fieldMessages = map[string]string{
	"name":     "Please enter your name",
	"email":    "Please enter a valid email address",
	"subject":  "Please enter a subject",
	"message":  "Please enter a message (at least 10 characters)",
	"password": "Password must be at least 6 characters",
}

// FieldError describes one invalid field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a form
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// Service validates demo forms and keeps an in-memory inbox
type Service struct {
	mu       sync.RWMutex
	inbox    []Message // Protected by mu
	validate *validator.Validate
	delay    time.Duration
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewService creates a contact service. delay simulates sending time.
func NewService(delay time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	_ = v.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		return addressPattern.MatchString(fl.Field().String())
	})
	return &Service{
		validate: v,
		delay:    delay,
		logger:   logger,
	}
}

// WithMetrics adds metrics tracking to the service
func (s *Service) WithMetrics(metrics *monitoring.Metrics) *Service {
	s.metrics = metrics
	return s
}

// Validate trims f in place and checks every field
func (s *Service) Validate(f *Form) error {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Subject = strings.TrimSpace(f.Subject)
	f.Message = strings.TrimSpace(f.Message)
	return s.check(f)
}

// ValidateLogin checks the demo login form
func (s *Service) ValidateLogin(f *LoginForm) error {
	f.Email = strings.TrimSpace(f.Email)
	return s.check(f)
}

func (s *Service) check(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

// Submit validates f and stores it after the configured delay
func (s *Service) Submit(ctx context.Context, f Form) (*Receipt, error) {
	if err := s.Validate(&f); err != nil {
		s.record("invalid")
		return nil, err
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			s.record("cancelled")
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	msg := Message{
		ID:         uuid.New().String(),
		Name:       f.Name,
		Email:      f.Email,
		Subject:    f.Subject,
		Body:       f.Message,
		ReceivedAt: time.Now(),
	}
	s.mu.Lock()
	s.inbox = append(s.inbox, msg)
	s.mu.Unlock()

	s.logger.Info("Contact message received", zap.String("id", msg.ID), zap.String("subject", msg.Subject))
	s.record("accepted")
	return &Receipt{ID: msg.ID, Notice: ThankYouNotice}, nil
}

// Login validates the demo login form; there are no accounts behind it
func (s *Service) Login(f LoginForm) (string, error) {
	if err := s.ValidateLogin(&f); err != nil {
		return "", err
	}
	return LoginNotice, nil
}

// Inbox returns stored messages, newest first
func (s *Service) Inbox() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.inbox))
	for i, m := range s.inbox {
		out[len(s.inbox)-1-i] = m
	}
	return out
}

func (s *Service) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordContact(result)
	}
}

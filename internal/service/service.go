// Package service implements the issue-tracking and license workflows on top
// of the repositories. Every failure a caller can act on is returned as an
// *apierrors.Error; anything else surfaces as SERVER_ERROR.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/auth"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/notifications"
	"github.com/goatkit/issueflow/internal/repository"
)

// DefaultExpiryHorizonDays is how far ahead the license sweep looks.
const DefaultExpiryHorizonDays = 15

var validate = validator.New()

// Notifier is the outbound notification sink. Implementations must not block
// on anything but delivery; failures are reported, never retried.
type Notifier interface {
	IssueAssigned(ctx context.Context, issue *models.Issue, members []notifications.Recipient) int
	IssueResolved(ctx context.Context, issue *models.IssueDetail) error
	LicensesExpiring(ctx context.Context, group models.ExpiringGroup, recipients []string) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) IssueAssigned(context.Context, *models.Issue, []notifications.Recipient) int {
	return 0
}
func (NopNotifier) IssueResolved(context.Context, *models.IssueDetail) error { return nil }
func (NopNotifier) LicensesExpiring(context.Context, models.ExpiringGroup, []string) error {
	return nil
}

// Options carries the behaviour switches shared by the services.
type Options struct {
	// EmptyListNotFound turns empty list results into NOT_FOUND for clients
	// that depend on the legacy behaviour.
	EmptyListNotFound bool
	ExpiryHorizonDays int
	PasswordPolicy    auth.PasswordPolicy
	Now               func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) horizonDays() int {
	if o.ExpiryHorizonDays > 0 {
		return o.ExpiryHorizonDays
	}
	return DefaultExpiryHorizonDays
}

func listResult[T any](items []T, o Options, message string) ([]T, error) {
	if items == nil {
		items = []T{}
	}
	if len(items) == 0 && o.EmptyListNotFound {
		return nil, apierrors.NotFound(message)
	}
	return items, nil
}

// storeError passes taxonomy errors through and wraps everything else.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apierrors.As(err); ok {
		return err
	}
	return apierrors.Internal(err)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}

func policyError(err error) error {
	var pe *auth.PolicyError
	if errors.As(err, &pe) {
		return apierrors.BadRequest(pe.Message)
	}
	return apierrors.Internal(err)
}

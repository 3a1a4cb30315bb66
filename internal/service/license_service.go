package service

import (
	"context"
	"encoding/base64"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/repository"
)

// LicenseInput is the body of the upload and update requests. On update,
// absent or zero fields are left unchanged.
type LicenseInput struct {
	File         *models.FileUpload `json:"file"`
	ExpiryDate   string             `json:"expiry_date"`
	DepartmentID models.FlexInt     `json:"department_id"`
}

// SweepResult summarises one expiry reminder run.
type SweepResult struct {
	Licenses    int `json:"licenses"`
	Departments int `json:"departments"`
	Notified    int `json:"notified"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}

func errLicenseNotFound() error { return apierrors.NotFound("License not found") }

// LicenseService manages license documents and their expiry reminders.
type LicenseService struct {
	db          *database.DB
	licenses    *repository.LicenseRepository
	departments *repository.DepartmentRepository
	users       *repository.UserRepository
	notifier    Notifier
	opts        Options
	log         zerolog.Logger
}

func NewLicenseService(db *database.DB, notifier Notifier, opts Options, log zerolog.Logger) *LicenseService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &LicenseService{
		db:          db,
		licenses:    repository.NewLicenseRepository(db),
		departments: repository.NewDepartmentRepository(db),
		users:       repository.NewUserRepository(db),
		notifier:    notifier,
		opts:        opts,
		log:         log.With().Str("service", "licenses").Logger(),
	}
}

// decodeDocument validates an uploaded file: the declared type must be on
// the allow-list and the bytes must actually be of that type.
func decodeDocument(f *models.FileUpload) (*models.LicenseDocument, error) {
	declared := strings.ToLower(strings.TrimSpace(f.Type))
	if !models.IsAllowedLicenseType(declared) {
		return nil, apierrors.BadRequest("Only PDF and PNG files are allowed")
	}

	payload := f.Data
	if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil || len(data) == 0 {
		return nil, apierrors.BadRequest("File data must be non-empty base64")
	}
	if !mimetype.Detect(data).Is(declared) {
		return nil, apierrors.BadRequest("File content does not match its declared type")
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(f.Name), `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return nil, apierrors.BadRequest("File name is required")
	}
	return &models.LicenseDocument{Name: name, Type: declared, Data: data}, nil
}

func parseExpiry(s string) (models.Date, error) {
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}, apierrors.BadRequest("Invalid expiry date")
	}
	return d, nil
}

func (s *LicenseService) checkDepartment(ctx context.Context, tx *sqlx.Tx, id int64) error {
	ok, err := s.departments.WithTx(tx).Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apierrors.BadRequest("Invalid department ID")
	}
	return nil
}

// Upload stores a new license document and returns its id.
func (s *LicenseService) Upload(ctx context.Context, in LicenseInput) (int64, error) {
	if in.File == nil || strings.TrimSpace(in.ExpiryDate) == "" || in.DepartmentID <= 0 {
		return 0, apierrors.BadRequest("File, expiry date and department ID are required")
	}
	doc, err := decodeDocument(in.File)
	if err != nil {
		return 0, err
	}
	expiry, err := parseExpiry(in.ExpiryDate)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.checkDepartment(ctx, tx, int64(in.DepartmentID)); err != nil {
			return err
		}
		id, err = s.licenses.WithTx(tx).Create(ctx, models.NewLicense{
			Document:     *doc,
			ExpiryDate:   expiry,
			DepartmentID: int64(in.DepartmentID),
		})
		return err
	})
	if err != nil {
		return 0, storeError(err)
	}
	s.log.Info().Int64("license_id", id).Str("file", doc.Name).Str("expiry", expiry.String()).Msg("license uploaded")
	return id, nil
}

// List returns license metadata ordered by expiry date.
func (s *LicenseService) List(ctx context.Context) ([]models.LicenseSummary, error) {
	licenses, err := s.licenses.List(ctx)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return listResult(licenses, s.opts, "No licenses found")
}

// ListExpiring returns licenses expiring within the horizon, inclusive.
func (s *LicenseService) ListExpiring(ctx context.Context) ([]models.LicenseSummary, error) {
	horizon := models.ExpiryHorizon(s.opts.now(), s.opts.horizonDays())
	licenses, err := s.licenses.ListExpiring(ctx, horizon)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return listResult(licenses, s.opts, "No expiring licenses found")
}

// Fetch returns the stored document.
func (s *LicenseService) Fetch(ctx context.Context, id int64) (*models.LicenseFile, error) {
	file, err := s.licenses.GetFile(ctx, id)
	if isNotFound(err) {
		return nil, errLicenseNotFound()
	}
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return file, nil
}

// Update changes any subset of expiry date, department and document.
func (s *LicenseService) Update(ctx context.Context, id int64, in LicenseInput) error {
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		licenses := s.licenses.WithTx(tx)
		ok, err := licenses.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return errLicenseNotFound()
		}

		var patch models.LicensePatch
		if strings.TrimSpace(in.ExpiryDate) != "" {
			expiry, err := parseExpiry(in.ExpiryDate)
			if err != nil {
				return err
			}
			patch.ExpiryDate = &expiry
		}
		if in.DepartmentID > 0 {
			if err := s.checkDepartment(ctx, tx, int64(in.DepartmentID)); err != nil {
				return err
			}
			dept := int64(in.DepartmentID)
			patch.DepartmentID = &dept
		}
		if in.File != nil {
			doc, err := decodeDocument(in.File)
			if err != nil {
				return err
			}
			patch.Document = doc
		}
		if patch.Empty() {
			return apierrors.BadRequest("No fields to update")
		}
		return licenses.Update(ctx, id, patch)
	})
	return storeError(err)
}

// Delete removes a license.
func (s *LicenseService) Delete(ctx context.Context, id int64) error {
	ok, err := s.licenses.Delete(ctx, id)
	if err != nil {
		return apierrors.Internal(err)
	}
	if !ok {
		return errLicenseNotFound()
	}
	return nil
}

// Sweep sends one reminder per department listing its licenses that expire
// within the horizon. It never fails: every error is logged and counted.
func (s *LicenseService) Sweep(ctx context.Context) (result SweepResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("license sweep aborted")
			result.Failed++
		}
	}()

	horizon := models.ExpiryHorizon(s.opts.now(), s.opts.horizonDays())

	licenses, err := s.licenses.ListExpiring(ctx, horizon)
	if err != nil {
		s.log.Error().Err(err).Msg("license sweep could not load expiring licenses")
		result.Failed++
		return result
	}
	result.Licenses = len(licenses)
	if len(licenses) == 0 {
		s.log.Info().Str("horizon", horizon.String()).Msg("no licenses expiring soon")
		return result
	}

	groups := models.GroupByDepartment(licenses)
	result.Departments = len(groups)
	for _, group := range groups {
		log := s.log.With().Int64("department_id", group.DepartmentID).Logger()
		members, err := s.users.ListByDepartment(ctx, group.DepartmentID)
		if err != nil {
			log.Error().Err(err).Msg("license sweep could not load department members")
			result.Failed++
			continue
		}
		recipients := make([]string, 0, len(members))
		for _, m := range members {
			if m.Email != "" {
				recipients = append(recipients, m.Email)
			}
		}
		if len(recipients) == 0 {
			result.Skipped++
			continue
		}
		if err := s.notifier.LicensesExpiring(ctx, group, recipients); err != nil {
			log.Warn().Err(err).Int("recipients", len(recipients)).Msg("license expiry reminder failed")
			result.Failed++
			continue
		}
		result.Notified++
	}

	s.log.Info().
		Int("licenses", result.Licenses).
		Int("departments", result.Departments).
		Int("notified", result.Notified).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("license sweep finished")
	return result
}

package services

import (
	"context"
	"errors"
	"log"
	"reflect"
	"strings"
	"time"

	"campusfix-be/board"
	"campusfix-be/campusmap"
	"campusfix-be/middlewares"
	"campusfix-be/models"
	"campusfix-be/repository"
	"campusfix-be/storage"

	"github.com/go-playground/validator/v10"
)

const (
	DashboardPath   = "/dashboard"
	RedirectAfterMs = 2000
)

// ReportInput is the report form. Coordinates come either as a lat/lng pair
// or as a pin position on the campus map image.
type ReportInput struct {
	Title        string   `json:"title" form:"title" validate:"required,max=200"`
	Description  string   `json:"description" form:"description" validate:"required,max=5000"`
	Category     string   `json:"category" form:"category" validate:"required,campus_category"`
	Priority     string   `json:"priority" form:"priority" validate:"required,issue_priority"`
	Location     string   `json:"location" form:"location" validate:"max=300"`
	ContactEmail string   `json:"contact_email" form:"contact_email" validate:"omitempty,email"`
	ContactPhone string   `json:"contact_phone" form:"contact_phone" validate:"omitempty,max=32"`
	Latitude     *float64 `json:"latitude" form:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude" form:"longitude" validate:"omitempty,longitude"`
	PinX         *float64 `json:"pin_x" form:"pin_x" validate:"omitempty,gte=0,lte=100"`
	PinY         *float64 `json:"pin_y" form:"pin_y" validate:"omitempty,gte=0,lte=100"`
}

// Reporter is the signed-in account submitting the form.
type Reporter struct {
	UserID string
	Email  string
}

type ReportResult struct {
	Issue           models.Issue `json:"issue"`
	Notices         []string     `json:"notices"`
	Redirect        string       `json:"redirect"`
	RedirectAfterMs int          `json:"redirect_after_ms"`
}

type ReportConfig struct {
	ImageMaxBytes     int64
	ImageMaxDimension int
}

type ReportService struct {
	board    *board.Board
	objects  storage.ObjectStore
	proj     campusmap.Projection
	cfg      ReportConfig
	validate *validator.Validate
	now      func() time.Time
}

// NewReportService wires the form flow. objects may be nil, in which case
// images are dropped with a notice.
func NewReportService(b *board.Board, objects storage.ObjectStore, proj campusmap.Projection, cfg ReportConfig) *ReportService {
	return &ReportService{
		board:    b,
		objects:  objects,
		proj:     proj,
		cfg:      cfg,
		validate: newValidator(),
		now:      time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("campus_category", func(fl validator.FieldLevel) bool {
		return models.IssueCategory(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("issue_priority", func(fl validator.FieldLevel) bool {
		return models.IssuePriority(fl.Field().String()).Valid()
	})
	return v
}

var fieldMessages = map[string]string{
	"required":        "is required",
	"campus_category": "must be one of the campus categories",
	"issue_priority":  "must be Low, Medium, High or Critical",
	"email":           "must be a valid email address",
	"latitude":        "must be a valid latitude",
	"longitude":       "must be a valid longitude",
}

// Submit validates the form, uploads the optional image and creates the
// issue. Nothing is written when validation fails.
func (s *ReportService) Submit(ctx context.Context, reporter Reporter, in ReportInput, image []byte) (*ReportResult, error) {
	if reporter.UserID == "" {
		return nil, repository.ErrAuthRequired
	}
	ownerID, err := repository.ParseID(reporter.UserID)
	if err != nil {
		return nil, repository.ErrAuthRequired
	}

	in = trimInput(in)
	if verr := s.check(in); verr.HasErrors() {
		return nil, verr
	}

	lat, lng, err := s.coordinates(in)
	if err != nil {
		return nil, err
	}

	var img *storage.Image
	if len(image) > 0 {
		img, err = storage.CheckImage(image, s.cfg.ImageMaxBytes)
		if err != nil {
			return nil, repository.NewValidationError("image", err.Error())
		}
	}

	now := s.now().UTC()
	issue := models.Issue{
		Title:        in.Title,
		Description:  in.Description,
		Status:       models.Reported,
		Priority:     models.IssuePriority(in.Priority),
		Category:     models.IssueCategory(in.Category),
		Location:     in.Location,
		Latitude:     lat,
		Longitude:    lng,
		UpvoteCount:  0,
		ReportedDate: now,
		UpdatedAt:    now,
		UserID:       &ownerID,
	}
	if issue.Location == "" {
		issue.Location = models.DefaultLocation
	}
	email := in.ContactEmail
	if email == "" {
		email = reporter.Email
	}
	if email != "" {
		issue.ContactEmail = &email
	}
	if in.ContactPhone != "" {
		phone := in.ContactPhone
		issue.ContactPhone = &phone
	}

	result := &ReportResult{Notices: []string{}, Redirect: DashboardPath, RedirectAfterMs: RedirectAfterMs}

	if img != nil {
		url, err := s.upload(ctx, reporter.UserID, img, now)
		if err != nil {
			log.Printf("report: image upload for %s failed: %v", reporter.UserID, err)
			middlewares.RecordImageUploadFailure()
			result.Notices = append(result.Notices, "The photo could not be uploaded; the issue was reported without it.")
		} else {
			issue.ImageURL = &url
		}
	}

	if err := s.board.Create(ctx, &issue); err != nil {
		return nil, err
	}
	middlewares.RecordIssueReported(in.Category, issue.ImageURL != nil)

	result.Issue = issue
	result.Notices = append(result.Notices, "Your issue has been submitted and will be reviewed by our team.")
	return result, nil
}

func (s *ReportService) check(in ReportInput) *repository.ValidationError {
	verr := &repository.ValidationError{}
	err := s.validate.Struct(in)
	if err == nil {
		return verr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("form", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "is invalid (" + fe.Tag() + ")"
		}
		verr.Add(fe.Field(), msg)
	}
	return verr
}

// coordinates resolves the optional map position. Both coordinates are set
// together or not at all.
func (s *ReportService) coordinates(in ReportInput) (*float64, *float64, error) {
	verr := &repository.ValidationError{}

	if (in.Latitude == nil) != (in.Longitude == nil) {
		verr.Add("coordinates", "latitude and longitude must be given together")
	}
	if (in.PinX == nil) != (in.PinY == nil) {
		verr.Add("pin", "pin_x and pin_y must be given together")
	}
	if in.Latitude != nil && in.PinX != nil {
		verr.Add("coordinates", "give either latitude/longitude or a map pin, not both")
	}
	if verr.HasErrors() {
		return nil, nil, verr
	}

	switch {
	case in.Latitude != nil:
		lat, lng := *in.Latitude, *in.Longitude
		return &lat, &lng, nil
	case in.PinX != nil:
		c, err := s.proj.ToLatLng(campusmap.Point{X: *in.PinX, Y: *in.PinY})
		if err != nil {
			return nil, nil, repository.NewValidationError("pin", err.Error())
		}
		return &c.Lat, &c.Lng, nil
	}
	return nil, nil, nil
}

func (s *ReportService) upload(ctx context.Context, owner string, img *storage.Image, at time.Time) (string, error) {
	if s.objects == nil {
		return "", errors.New("no object storage configured")
	}

	normalized, err := storage.Normalize(img, s.cfg.ImageMaxDimension)
	if err != nil {
		log.Printf("report: keep original image, normalize failed: %v", err)
		normalized = img
	}

	key := storage.ObjectKey(owner, at, normalized.Extension)
	return s.objects.Put(ctx, key, normalized.ContentType, normalized.Data)
}

func trimInput(in ReportInput) ReportInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Priority = strings.TrimSpace(in.Priority)
	in.Location = strings.TrimSpace(in.Location)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)
	return in
}

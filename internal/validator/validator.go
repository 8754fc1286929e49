package validator

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goodjin/migratehero/internal/domain"
)

var (
	jobIDRegex      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,127}$`)
	validSources    = []interface{}{domain.SourcePush, domain.SourcePoll, domain.SourceControl}
	validPhases     = []interface{}{domain.PhaseInitialSync, domain.PhaseIncrementalSync, domain.PhaseGoLive}
	validJobStatus  = toInterfaces(domain.ValidJobStatuses)
	validFolderStat = toInterfaces(domain.ValidFolderStatuses)
)

func toInterfaces[T any](in []T) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// Validator validates inbound progress events and request parameters.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateJobID validates an opaque job id as used in topics and URLs.
func (v *Validator) ValidateJobID(id string) error {
	return validation.Validate(id,
		validation.Required.Error("job_id_required"),
		validation.Match(jobIDRegex).Error("invalid_job_id"),
	)
}

// ValidateEvent checks the shape of a normalized progress event. An event that
// fails here is a contract violation of the producing adapter.
func (v *Validator) ValidateEvent(ev *domain.ProgressEvent) error {
	err := validation.ValidateStruct(ev,
		validation.Field(&ev.JobID,
			validation.Required.Error("job_id_required"),
			validation.Match(jobIDRegex).Error("invalid_job_id"),
		),
		validation.Field(&ev.Marker,
			validation.Min(int64(0)).Error("marker_must_not_be_negative"),
		),
		validation.Field(&ev.Source,
			validation.Required.Error("source_required"),
			validation.In(validSources...).Error("invalid_source"),
		),
		validation.Field(&ev.Status,
			validation.In(validJobStatus...).Error("invalid_status"),
		),
		validation.Field(&ev.Phase,
			validation.In(validPhases...).Error("invalid_phase"),
		),
		validation.Field(&ev.Counters,
			validation.By(countersRule),
		),
		validation.Field(&ev.TotalFolders,
			validation.Min(int64(0)).Error("total_folders_must_not_be_negative"),
		),
		validation.Field(&ev.MigratedFolders,
			validation.Min(int64(0)).Error("migrated_folders_must_not_be_negative"),
		),
	)
	if err != nil {
		return err
	}

	for _, f := range ev.Folders {
		if err := validateFolderUpdate(f); err != nil {
			return validation.Errors{"folders": err}
		}
	}
	return nil
}

func validateFolderUpdate(f domain.FolderUpdate) error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.ID,
			validation.Required.Error("folder_id_required"),
		),
		validation.Field(&f.Status,
			validation.In(validFolderStat...).Error("invalid_folder_status"),
		),
		validation.Field(&f.Counter,
			validation.By(counterRule),
		),
	)
}

// countersRule rejects unknown categories and negative values.
func countersRule(value interface{}) error {
	counters, ok := value.(map[domain.Category]domain.Counter)
	if !ok {
		return nil
	}
	for c, counter := range counters {
		if !domain.IsValidCategory(string(c)) {
			return validation.NewError("invalid_category", "unknown category "+string(c))
		}
		if err := counterRule(counter); err != nil {
			return err
		}
	}
	return nil
}

func counterRule(value interface{}) error {
	var c domain.Counter
	switch v := value.(type) {
	case domain.Counter:
		c = v
	case *domain.Counter:
		if v == nil {
			return nil
		}
		c = *v
	default:
		return nil
	}
	if c.Total < 0 || c.Migrated < 0 || c.Failed < 0 {
		return validation.NewError("negative_counter", "counter values must not be negative")
	}
	return nil
}

// FieldErrors flattens ozzo validation errors into a field -> reason map.
func FieldErrors(err error) map[string]string {
	out := make(map[string]string)
	if ve, ok := err.(validation.Errors); ok {
		for field, fieldErr := range ve {
			out[field] = fieldErr.Error()
		}
	} else if err != nil {
		out["unknown"] = err.Error()
	}
	return out
}

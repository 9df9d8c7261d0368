package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/learningtriangle/ltgate/internal/apperr"
	"github.com/learningtriangle/ltgate/internal/jsonfield"
)

// Caller-facing validation messages.
const (
	MsgMissingFields  = "Chybí povinná pole"
	MsgInvalidLength  = "Recenze musí být 10-500 znaků"
	MsgInvalidRating  = "Hodnocení musí být 1-5"
	MsgUnknownAction  = "Neznámá akce"
	MsgMethodMismatch = "Metoda není povolena pro tuto akci"
	MsgServerError    = "Chyba serveru"
)

// Review text bounds, in characters.
const (
	MinReviewLength = 10
	MaxReviewLength = 500
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Payload carries every field any write action may read. Unused fields are
// ignored by the action that does not need them.
type Payload struct {
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	City      string      `json:"city"`
	Birthdate string      `json:"birthdate"`
	Message   string      `json:"message"`
	Text      string      `json:"text"`
	Rating    RatingField `json:"rating"`
}

// UnmarshalJSON decodes the text fields leniently: form scripts send phone
// numbers and similar values as JSON numbers, and falsy values read as
// missing.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var in struct {
		Name      jsonfield.String `json:"name"`
		Email     jsonfield.String `json:"email"`
		Phone     jsonfield.String `json:"phone"`
		City      jsonfield.String `json:"city"`
		Birthdate jsonfield.String `json:"birthdate"`
		Message   jsonfield.String `json:"message"`
		Text      jsonfield.String `json:"text"`
		Rating    RatingField      `json:"rating"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Payload{
		Name:      string(in.Name),
		Email:     string(in.Email),
		Phone:     string(in.Phone),
		City:      string(in.City),
		Birthdate: string(in.Birthdate),
		Message:   string(in.Message),
		Text:      string(in.Text),
		Rating:    in.Rating,
	}
	return nil
}

// RatingField accepts a rating sent either as a JSON number or a numeric
// string.
type RatingField struct {
	raw json.RawMessage
}

func (r *RatingField) UnmarshalJSON(data []byte) error {
	r.raw = append(r.raw[:0], data...)
	return nil
}

// Rating returns a RatingField holding n, for building payloads in code.
func Rating(n int) RatingField {
	return RatingField{raw: json.RawMessage(strconv.Itoa(n))}
}

// RatingString returns a RatingField holding s as a JSON string.
func RatingString(s string) RatingField {
	b, _ := json.Marshal(s)
	return RatingField{raw: b}
}

// errNotNumeric marks a rating that is present but has no leading integer.
var errNotNumeric = errors.New("rating is not numeric")

// Int coerces the rating to an integer. Numbers are truncated toward zero;
// strings yield their leading integer, as parseInt does. A missing, null,
// empty, false or numeric zero rating reports present == false; the string
// "0" is present.
func (r RatingField) Int() (n int, present bool, err error) {
	raw := bytes.TrimSpace(r.raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return 0, false, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, true, errNotNumeric
	}

	switch val := v.(type) {
	case float64:
		if val == 0 {
			return 0, false, nil
		}
		if math.IsNaN(val) || math.IsInf(val, 0) || math.Abs(val) > math.MaxInt32 {
			return 0, true, errNotNumeric
		}
		return int(val), true, nil
	case string:
		if val == "" {
			return 0, false, nil
		}
		n, ok := leadingInt(val)
		if !ok {
			return 0, true, errNotNumeric
		}
		return n, true, nil
	case bool:
		return 0, true, errNotNumeric
	default:
		return 0, true, errNotNumeric
	}
}

// leadingInt parses an optional sign and the leading decimal digits of s
// after leading whitespace.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' && end-digitsStart < 9 {
		end++
	}
	if end == digitsStart {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

type reviewInput struct {
	Name   string `validate:"required"`
	Rating int    `validate:"required,min=1,max=5"`
	Text   string `validate:"required,min=10,max=500"`
}

type contactInput struct {
	Name  string `validate:"required"`
	Email string `validate:"required"`
	Phone string `validate:"required"`
	City  string `validate:"required"`
}

type tutorInput struct {
	Name      string `validate:"required"`
	Email     string `validate:"required"`
	Phone     string `validate:"required"`
	Birthdate string `validate:"required"`
	Message   string `validate:"required"`
}

// validateReview checks a review payload and returns the coerced rating.
func validateReview(p Payload) (int, error) {
	rating, present, err := p.Rating.Int()
	switch {
	case !present:
		rating = 0
	case err != nil || rating == 0:
		// Present but unusable: keep it non-zero so only the range rule fires.
		rating = -1
	}
	return rating, checkStruct(reviewInput{Name: p.Name, Rating: rating, Text: p.Text})
}

func validateContact(p Payload) error {
	return checkStruct(contactInput{Name: p.Name, Email: p.Email, Phone: p.Phone, City: p.City})
}

func validateTutor(p Payload) error {
	return checkStruct(tutorInput{Name: p.Name, Email: p.Email, Phone: p.Phone, Birthdate: p.Birthdate, Message: p.Message})
}

// checkStruct runs the validator and maps failed tags to caller errors:
// any missing field wins over length, length wins over rating range.
func checkStruct(v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.Internal, MsgServerError, err)
	}

	var missing, badLength, badRating bool
	for _, fe := range verrs {
		switch {
		case fe.Tag() == "required":
			missing = true
		case fe.Field() == "Text":
			badLength = true
		case fe.Field() == "Rating":
			badRating = true
		}
	}

	switch {
	case missing:
		return apperr.New(apperr.InvalidInput, MsgMissingFields)
	case badLength:
		return apperr.New(apperr.InvalidInput, MsgInvalidLength)
	case badRating:
		return apperr.New(apperr.InvalidInput, MsgInvalidRating)
	default:
		return apperr.Wrap(apperr.InvalidInput, MsgMissingFields, err)
	}
}

package intake

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/learningtriangle/ltgate/internal/apperr"
)

func decodePayload(t *testing.T, body string) Payload {
	t.Helper()
	var p Payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("unmarshal %s: %v", body, err)
	}
	return p
}

func messageOf(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ""
}

func TestRatingField_Int(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantN       int
		wantPresent bool
		wantErr     bool
	}{
		{"missing", `{}`, 0, false, false},
		{"null", `{"rating":null}`, 0, false, false},
		{"zero", `{"rating":0}`, 0, false, false},
		{"empty string", `{"rating":""}`, 0, false, false},
		{"false", `{"rating":false}`, 0, false, false},
		{"number", `{"rating":5}`, 5, true, false},
		{"fraction truncates", `{"rating":4.7}`, 4, true, false},
		{"numeric string", `{"rating":"3"}`, 3, true, false},
		{"string zero is present", `{"rating":"0"}`, 0, true, false},
		{"leading digits", `{"rating":"4 hvězdy"}`, 4, true, false},
		{"padded string", `{"rating":"  2"}`, 2, true, false},
		{"negative", `{"rating":-2}`, -2, true, false},
		{"non-numeric string", `{"rating":"pět"}`, 0, true, true},
		{"true", `{"rating":true}`, 0, true, true},
		{"object", `{"rating":{"v":5}}`, 0, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := decodePayload(t, tt.body)
			n, present, err := p.Rating.Int()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if present != tt.wantPresent {
				t.Errorf("present = %v, want %v", present, tt.wantPresent)
			}
			if err == nil && n != tt.wantN {
				t.Errorf("n = %d, want %d", n, tt.wantN)
			}
		})
	}
}

func TestPayload_LenientFields(t *testing.T) {
	p := decodePayload(t, `{"name":"Petr","email":"petr@example.cz","phone":777000111,"city":5,"message":null,"text":false}`)
	if p.Phone != "777000111" {
		t.Errorf("Phone = %q, want 777000111", p.Phone)
	}
	if p.City != "5" {
		t.Errorf("City = %q, want 5", p.City)
	}
	if p.Message != "" || p.Text != "" {
		t.Errorf("falsy fields = %q, %q, want empty", p.Message, p.Text)
	}
	if err := validateContact(p); err != nil {
		t.Errorf("validateContact: %v", err)
	}

	p = decodePayload(t, `{"name":"Petr","email":"petr@example.cz","phone":0,"city":"Brno"}`)
	if messageOf(validateContact(p)) != MsgMissingFields {
		t.Errorf("zero phone should read as missing")
	}
}

func TestValidateReview_Rating(t *testing.T) {
	text := "Skvělé doučování, moc děkuji."
	tests := []struct {
		name    string
		rating  RatingField
		want    int
		wantMsg string
	}{
		{"one", Rating(1), 1, ""},
		{"five", Rating(5), 5, ""},
		{"string four", RatingString("4"), 4, ""},
		{"zero is missing", Rating(0), 0, MsgMissingFields},
		{"absent is missing", RatingField{}, 0, MsgMissingFields},
		{"string zero is out of range", RatingString("0"), 0, MsgInvalidRating},
		{"six", Rating(6), 0, MsgInvalidRating},
		{"negative", Rating(-3), 0, MsgInvalidRating},
		{"not a number", RatingString("abc"), 0, MsgInvalidRating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateReview(Payload{Name: "Jana", Text: text, Rating: tt.rating})
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("validateReview: %v", err)
				}
				if got != tt.want {
					t.Errorf("rating = %d, want %d", got, tt.want)
				}
				return
			}
			if apperr.KindOf(err) != apperr.InvalidInput {
				t.Fatalf("kind = %v, want InvalidInput (err=%v)", apperr.KindOf(err), err)
			}
			if messageOf(err) != tt.wantMsg {
				t.Errorf("message = %q, want %q", messageOf(err), tt.wantMsg)
			}
		})
	}
}

func TestValidateReview_TextLength(t *testing.T) {
	tests := []struct {
		runes   int
		wantErr bool
	}{
		{9, true},
		{10, false},
		{500, false},
		{501, true},
	}
	for _, tt := range tests {
		// Multi-byte characters make sure length is counted in characters.
		text := strings.Repeat("ž", tt.runes)
		_, err := validateReview(Payload{Name: "Jana", Rating: Rating(5), Text: text})
		if tt.wantErr {
			if messageOf(err) != MsgInvalidLength {
				t.Errorf("%d chars: err = %v, want %q", tt.runes, err, MsgInvalidLength)
			}
			continue
		}
		if err != nil {
			t.Errorf("%d chars: unexpected error %v", tt.runes, err)
		}
	}
}

func TestValidateReview_Precedence(t *testing.T) {
	// Missing name wins over a short text and a bad rating.
	_, err := validateReview(Payload{Rating: Rating(9), Text: "krátké"})
	if messageOf(err) != MsgMissingFields {
		t.Errorf("missing name: message = %q", messageOf(err))
	}

	// Length wins over rating range.
	_, err = validateReview(Payload{Name: "Jana", Rating: Rating(9), Text: "krátké"})
	if messageOf(err) != MsgInvalidLength {
		t.Errorf("short text with bad rating: message = %q", messageOf(err))
	}

	// Empty text is a missing field, not a length failure.
	_, err = validateReview(Payload{Name: "Jana", Rating: Rating(5)})
	if messageOf(err) != MsgMissingFields {
		t.Errorf("empty text: message = %q", messageOf(err))
	}
}

func TestValidateContact(t *testing.T) {
	full := Payload{Name: "Petr", Email: "petr@example.cz", Phone: "+420 777 000 111", City: "Brno"}
	if err := validateContact(full); err != nil {
		t.Fatalf("validateContact: %v", err)
	}

	for _, drop := range []func(*Payload){
		func(p *Payload) { p.Name = "" },
		func(p *Payload) { p.Email = "" },
		func(p *Payload) { p.Phone = "" },
		func(p *Payload) { p.City = "" },
	} {
		p := full
		drop(&p)
		if messageOf(validateContact(p)) != MsgMissingFields {
			t.Errorf("payload %+v: want %q", p, MsgMissingFields)
		}
	}
}

func TestValidateTutor(t *testing.T) {
	full := Payload{
		Name:      "Eva",
		Email:     "eva@example.cz",
		Phone:     "777000111",
		Birthdate: "2001-05-04",
		Message:   "Ráda bych doučovala matematiku.",
	}
	if err := validateTutor(full); err != nil {
		t.Fatalf("validateTutor: %v", err)
	}

	p := full
	p.Birthdate = ""
	if messageOf(validateTutor(p)) != MsgMissingFields {
		t.Errorf("missing birthdate: want %q", MsgMissingFields)
	}

	// City is not required for tutor applications.
	p = full
	p.City = ""
	if err := validateTutor(p); err != nil {
		t.Errorf("tutor without city: %v", err)
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range []Action{ActionGetReviews, ActionAddReview, ActionContact, ActionTutorApply} {
		if got := ParseAction(a.String()); got != a {
			t.Errorf("ParseAction(%q) = %v, want %v", a.String(), got, a)
		}
	}
	for _, s := range []string{"", "delete-all", "GET-REVIEWS"} {
		if got := ParseAction(s); got != ActionUnknown {
			t.Errorf("ParseAction(%q) = %v, want unknown", s, got)
		}
	}
}

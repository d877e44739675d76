package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/southwheels/internal/validation"
	"github.com/garnizeh/southwheels/pkg/models"
)

//go:embed schemas/car.json
var carSchemaJSON []byte

var (
	carSchema = mustSchema(carSchemaJSON)
	// jsonschema keeps a package-level registry that validation writes to
	carSchemaMu sync.Mutex
)

func mustSchema(b []byte) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(b, rs); err != nil {
		panic(fmt.Sprintf("car schema: %v", err))
	}
	return rs
}

const maxCarBody = 1 << 20

type carPayload struct {
	Name           string   `json:"name"`
	Brand          string   `json:"brand"`
	ModelYear      int      `json:"model_year"`
	Price          int64    `json:"price"`
	AdvanceAmount  int64    `json:"advance_amount"`
	KmDriven       int64    `json:"km_driven"`
	FuelType       string   `json:"fuel_type"`
	Location       string   `json:"location"`
	Status         string   `json:"status,omitempty"`
	Images         []string `json:"images"`
	ConditionNotes *string  `json:"condition_notes"`
}

func (p carPayload) car() *models.Car {
	return &models.Car{
		Name:           strings.TrimSpace(p.Name),
		Brand:          strings.TrimSpace(p.Brand),
		ModelYear:      p.ModelYear,
		Price:          p.Price,
		AdvanceAmount:  p.AdvanceAmount,
		KmDriven:       p.KmDriven,
		FuelType:       p.FuelType,
		Location:       strings.TrimSpace(p.Location),
		Status:         p.Status,
		Images:         p.Images,
		ConditionNotes: p.ConditionNotes,
	}
}

// decodeCar reads a car from a JSON body or form values and checks it
// against the car schema. Schema violations come back as a
// *validation.ValidationError keyed by field.
func decodeCar(ctx context.Context, r *http.Request) (*models.Car, error) {
	var body []byte
	if isJSONBody(r) {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxCarBody))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		body = b
	} else {
		b, verr, err := carFormJSON(r)
		if err != nil {
			return nil, err
		}
		if verr != nil {
			return nil, verr
		}
		body = b
	}

	carSchemaMu.Lock()
	keyErrs, err := carSchema.ValidateBytes(ctx, body)
	carSchemaMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(keyErrs) > 0 {
		verr := &validation.ValidationError{Fields: make(map[string]string, len(keyErrs))}
		for _, ke := range keyErrs {
			field := schemaField(ke.PropertyPath, ke.Message)
			if _, seen := verr.Fields[field]; !seen {
				verr.Fields[field] = ke.Message
			}
		}
		return nil, verr
	}

	var p carPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if p.AdvanceAmount > p.Price {
		return nil, &validation.ValidationError{Fields: map[string]string{
			"advance_amount": "must not exceed the price",
		}}
	}
	return p.car(), nil
}

// schemaField maps a schema error to the offending top-level field.
// Required-property errors point at the object, so the name comes from the message.
func schemaField(path, msg string) string {
	path = strings.TrimPrefix(path, "/")
	if name, _, _ := strings.Cut(path, "/"); name != "" {
		return name
	}
	if _, rest, ok := strings.Cut(msg, `"`); ok {
		if name, _, ok := strings.Cut(rest, `"`); ok && name != "" {
			return name
		}
	}
	return "car"
}

var carIntFields = []string{"model_year", "price", "advance_amount", "km_driven"}

// carFormJSON turns the car form into the JSON document the schema checks.
// Numbers that do not parse are reported without consulting the schema.
func carFormJSON(r *http.Request) ([]byte, *validation.ValidationError, error) {
	if err := r.ParseForm(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	doc := map[string]any{}
	for _, k := range []string{"name", "brand", "fuel_type", "location", "status"} {
		if v := strings.TrimSpace(r.PostFormValue(k)); v != "" {
			doc[k] = v
		}
	}

	fields := map[string]string{}
	for _, k := range carIntFields {
		raw := strings.TrimSpace(strings.ReplaceAll(r.PostFormValue(k), ",", ""))
		if raw == "" {
			continue
		}
		// base 10 only: a leading zero is padding, not an octal prefix
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fields[k] = "must be a whole number"
			continue
		}
		doc[k] = n
	}
	if len(fields) > 0 {
		return nil, &validation.ValidationError{Fields: fields}, nil
	}

	images := []string{}
	for _, line := range strings.FieldsFunc(r.PostFormValue("images"), func(c rune) bool {
		return c == '\n' || c == ','
	}) {
		if s := strings.TrimSpace(line); s != "" {
			images = append(images, s)
		}
	}
	doc["images"] = images
	if notes := strings.TrimSpace(r.PostFormValue("condition_notes")); notes != "" {
		doc["condition_notes"] = notes
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	return b, nil, nil
}

package models

// Domain models matching the database schema in db/migrations/0001_init.sql

type Identity struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`
}

type Profile struct {
	ID       string `json:"id" db:"id"`
	FullName string `json:"full_name" db:"full_name" validate:"required"`
	Mobile   string `json:"mobile" db:"mobile"`
	Role     Role   `json:"role" db:"role"`
	Created  int64  `json:"created" db:"created"`
	Updated  int64  `json:"updated" db:"updated"`
}

type Car struct {
	ID             string   `json:"id" db:"id"`
	Name           string   `json:"name" db:"name"`
	Brand          string   `json:"brand" db:"brand"`
	ModelYear      int      `json:"model_year" db:"model_year"`
	Price          int64    `json:"price" db:"price"`
	AdvanceAmount  int64    `json:"advance_amount" db:"advance_amount"`
	KmDriven       int64    `json:"km_driven" db:"km_driven"`
	FuelType       string   `json:"fuel_type" db:"fuel_type"`
	Location       string   `json:"location" db:"location"`
	Status         string   `json:"status" db:"status"`
	Images         []string `json:"images" db:"images"`
	ConditionNotes *string  `json:"condition_notes,omitempty" db:"condition_notes"`
	Created        int64    `json:"created" db:"created"`
	Updated        int64    `json:"updated" db:"updated"`
}

type Booking struct {
	ID          string `json:"id" db:"id"`
	CarID       string `json:"car_id" db:"car_id"`
	CustomerID  string `json:"customer_id" db:"customer_id"`
	AmountPaid  int64  `json:"amount_paid" db:"amount_paid"`
	Status      string `json:"status" db:"status"`
	NocStatus   string `json:"noc_status" db:"noc_status"`
	BookingDate int64  `json:"booking_date" db:"booking_date"`
	Created     int64  `json:"created" db:"created"`
	Updated     int64  `json:"updated" db:"updated"`

	// CarName is filled by joined reads.
	CarName string `json:"car_name,omitempty" db:"car_name"`
}

type Enquiry struct {
	ID         string  `json:"id" db:"id"`
	CustomerID string  `json:"customer_id" db:"customer_id"`
	CarID      *string `json:"car_id,omitempty" db:"car_id"`
	Subject    string  `json:"subject" db:"subject"`
	Message    string  `json:"message" db:"message"`
	AdminReply *string `json:"admin_reply,omitempty" db:"admin_reply"`
	Status     string  `json:"status" db:"status"`
	Created    int64   `json:"created" db:"created"`
	Updated    int64   `json:"updated" db:"updated"`
}

// CustomerSummary is a customer profile with booking activity, used by the admin customer list.
type CustomerSummary struct {
	Profile
	Email        string `json:"email"`
	BookingCount int64  `json:"booking_count"`
}

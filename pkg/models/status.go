package models

import "slices"

const (
	CarAvailable = "available"
	CarBooked    = "booked"
	CarSold      = "sold"
)

const (
	BookingAdvancePaid   = "advance_paid"
	BookingConfirmed     = "confirmed"
	BookingNocProcessing = "noc_processing"
	BookingCompleted     = "completed"
	BookingCancelled     = "cancelled"

	// bookingPending is accepted on input and stored as advance_paid.
	bookingPending = "pending"
)

const (
	NocPending   = "pending"
	NocInProcess = "in_process"
	NocReady     = "ready"
)

const (
	EnquiryPending = "pending"
	EnquiryReplied = "replied"
)

var (
	carStatuses     = []string{CarAvailable, CarBooked, CarSold}
	bookingStatuses = []string{BookingAdvancePaid, BookingConfirmed, BookingNocProcessing, BookingCompleted, BookingCancelled}
	nocStatuses     = []string{NocPending, NocInProcess, NocReady}
)

func ValidCarStatus(s string) bool { return slices.Contains(carStatuses, s) }

func ValidNocStatus(s string) bool { return slices.Contains(nocStatuses, s) }

// NormalizeBookingStatus returns the stored form of a booking status and whether it is known.
func NormalizeBookingStatus(s string) (string, bool) {
	if s == bookingPending {
		return BookingAdvancePaid, true
	}
	return s, slices.Contains(bookingStatuses, s)
}

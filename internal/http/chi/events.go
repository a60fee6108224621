package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marcelsud/webhook-courier/event"
	"github.com/marcelsud/webhook-courier/vendors"
)

/* HTTP layer DTOs for the event API
 * Separate from domain entities to avoid leaking internal structure
 */

// enqueueRequest represents the incoming event submission
type enqueueRequest struct {
	VendorID    string          `json:"vendor_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	TargetURL   string          `json:"target_url"`
	MaxAttempts int             `json:"max_attempts"`
}

// enqueueResponse represents the API response when accepting an event
type enqueueResponse struct {
	EventID string `json:"event_id"`
}

// eventResponse represents an event in the API
type eventResponse struct {
	ID             string          `json:"id"`
	VendorID       string          `json:"vendor_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	TargetURL      string          `json:"target_url"`
	Status         string          `json:"status"`
	Attempts       int             `json:"attempts"`
	MaxAttempts    int             `json:"max_attempts"`
	NextRetryAt    *time.Time      `json:"next_retry_at,omitempty"`
	LastAttemptAt  *time.Time      `json:"last_attempt_at,omitempty"`
	ResponseStatus *int            `json:"response_status,omitempty"`
	ResponseBody   string          `json:"response_body,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toEventResponse(e event.Event) eventResponse {
	return eventResponse{
		ID:             e.ID,
		VendorID:       e.VendorID,
		EventType:      e.EventType,
		Payload:        json.RawMessage(e.Payload),
		TargetURL:      e.TargetURL,
		Status:         e.Status.String(),
		Attempts:       e.Attempts,
		MaxAttempts:    e.MaxAttempts,
		NextRetryAt:    e.NextRetryAt,
		LastAttemptAt:  e.LastAttemptAt,
		ResponseStatus: e.ResponseStatus,
		ResponseBody:   e.ResponseBody,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

// postEvent handles POST /v1/events
func postEvent(eventService event.UseCase, registry *vendors.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req enqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		if req.VendorID == "" {
			http.Error(w, "vendor_id is required", http.StatusBadRequest)
			return
		}
		if req.EventType == "" {
			http.Error(w, "event_type is required", http.StatusBadRequest)
			return
		}
		if req.TargetURL == "" {
			http.Error(w, "target_url is required", http.StatusBadRequest)
			return
		}

		// Only vendors in the registry may enqueue. A request without
		// max_attempts picks up the vendor's configured ceiling; the
		// service still applies the engine default when both are unset.
		maxAttempts := req.MaxAttempts
		if registry != nil {
			vendor, err := registry.Get(req.VendorID)
			if err != nil {
				http.Error(w, fmt.Sprintf("vendor not found: %s", req.VendorID), http.StatusNotFound)
				return
			}
			if maxAttempts <= 0 {
				maxAttempts = vendor.MaxAttempts
			}
		}

		eventID, err := eventService.Enqueue(
			r.Context(),
			req.VendorID,
			req.EventType,
			[]byte(req.Payload),
			req.TargetURL,
			maxAttempts,
		)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// 202: accepted for delivery, not yet delivered
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(enqueueResponse{EventID: eventID}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// getEvent handles GET /v1/events/{id}
func getEvent(eventService event.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		e, err := eventService.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, event.ErrNotFound) {
				http.Error(w, fmt.Sprintf("event not found: %s", id), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toEventResponse(e)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// getVendorEvents handles GET /v1/vendors/{vendor_id}/events
func getVendorEvents(eventService event.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vendorID := chi.URLParam(r, "vendor_id")

		var statusFilter event.Status
		if s := r.URL.Query().Get("status"); s != "" {
			statusFilter = event.NewStatus(s)
			if statusFilter.String() != s {
				http.Error(w, fmt.Sprintf("invalid status filter: %s", s), http.StatusBadRequest)
				return
			}
		}

		limit := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			parsed, err := strconv.Atoi(l)
			if err != nil || parsed <= 0 {
				http.Error(w, fmt.Sprintf("invalid limit: %s", l), http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		all, err := eventService.ListByVendor(r.Context(), vendorID, statusFilter, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		result := make([]eventResponse, 0, len(all))
		for _, e := range all {
			result = append(result, toEventResponse(e))
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

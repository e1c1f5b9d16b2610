package handlers

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/events"
	"github.com/ukydev/service-center/internal/middleware"
	"go.mongodb.org/mongo-driver/bson"
)

type validator interface {
	Validate() error
}

type defaulter interface {
	ApplyDefaults()
}

type idResetter interface {
	ResetID()
}

// RecordHandler serves list/get/create/update/delete for one collection.
// T is the stored record and P the patch type an edit decodes into.
type RecordHandler[T validator, P validator] struct {
	collection string
	store      db.RecordStore[T]
	publisher  events.Publisher
	filters    []string
}

// NewRecordHandler creates a handler for store. Query parameters named in
// filters are matched for equality when listing.
func NewRecordHandler[T validator, P validator](collection string, store db.RecordStore[T], publisher events.Publisher, filters ...string) *RecordHandler[T, P] {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &RecordHandler[T, P]{
		collection: collection,
		store:      store,
		publisher:  publisher,
		filters:    filters,
	}
}

// List returns every record, narrowed by any supported query parameters.
func (h *RecordHandler[T, P]) List(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	query := r.URL.Query()
	for _, key := range h.filters {
		if value := query.Get(key); value != "" {
			filter[key] = value
		}
	}

	records, err := h.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, "list "+h.collection, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Get returns a single record.
func (h *RecordHandler[T, P]) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "get "+h.collection, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Create stores a new record and responds with its id.
func (h *RecordHandler[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	var record T
	if err := decodeJSON(r, &record); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if rs, ok := any(&record).(idResetter); ok {
		rs.ResetID()
	}
	if d, ok := any(&record).(defaulter); ok {
		d.ApplyDefaults()
	}
	if err := record.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.store.Create(r.Context(), record)
	if err != nil {
		writeError(w, r, "create "+h.collection, err)
		return
	}
	h.publish(r, events.Created, id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Update merges the submitted fields into the record.
func (h *RecordHandler[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch P
	if err := decodeJSON(r, &patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := patch.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.Update(r.Context(), id, patch); err != nil {
		writeError(w, r, "update "+h.collection, err)
		return
	}
	h.publish(r, events.Updated, id)
	writeMessage(w, http.StatusOK, "Record updated successfully")
}

// Delete removes the record. Records in other collections that refer to it
// are left in place.
func (h *RecordHandler[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, r, "delete "+h.collection, err)
		return
	}
	h.publish(r, events.Deleted, id)
	writeMessage(w, http.StatusOK, "Record deleted successfully")
}

func (h *RecordHandler[T, P]) publish(r *http.Request, action events.Action, id string) {
	publishChange(r, h.publisher, h.collection, action, id)
}

// publishChange announces a completed write. The write already happened, so
// a publish failure is only logged.
func publishChange(r *http.Request, publisher events.Publisher, collection string, action events.Action, id string) {
	event := events.Event{
		Collection: collection,
		Action:     action,
		ID:         id,
		At:         time.Now().UTC(),
	}
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		event.Actor = claims.UserID
	}
	if err := publisher.Publish(context.WithoutCancel(r.Context()), event); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"collection": collection,
			"action":     action,
			"id":         id,
		}).Warn("Failed to publish change event")
	}
}

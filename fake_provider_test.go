package ddns_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Travis-Britz/cfddns"
)

type editCall struct {
	ID     string
	Params ddns.RecordParams
}

// fakeProvider is an in-memory zone that records every mutation.
type fakeProvider struct {
	mu      sync.Mutex
	records []ddns.Record
	lists   int
	creates []ddns.RecordParams
	edits   []editCall
	nextID  int

	listErr, createErr, editErr error
}

func (f *fakeProvider) ListRecords(ctx context.Context, zone string) ([]ddns.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]ddns.Record(nil), f.records...), nil
}

func (f *fakeProvider) CreateRecord(ctx context.Context, zone string, p ddns.RecordParams) (ddns.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, p)
	if f.createErr != nil {
		return ddns.Record{}, f.createErr
	}
	f.nextID++
	rec := ddns.Record{ID: fmt.Sprintf("new%d", f.nextID), Name: p.Name, Type: p.Type, Content: p.Content, ServiceMode: p.ServiceMode}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeProvider) EditRecord(ctx context.Context, zone string, id string, p ddns.RecordParams) (ddns.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editCall{ID: id, Params: p})
	if f.editErr != nil {
		return ddns.Record{}, f.editErr
	}
	for i, r := range f.records {
		if r.ID == id {
			f.records[i] = ddns.Record{ID: id, Name: p.Name, Type: p.Type, Content: p.Content, ServiceMode: p.ServiceMode}
			return f.records[i], nil
		}
	}
	return ddns.Record{}, errors.New("record not found")
}

func (f *fakeProvider) mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates) + len(f.edits)
}

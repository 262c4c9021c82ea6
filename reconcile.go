package ddns

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Action is the change a reconciliation made.
type Action int

const (
	Unchanged Action = iota
	Updated
	Created
)

func (a Action) String() string {
	switch a {
	case Updated:
		return "updated"
	case Created:
		return "created"
	}
	return "unchanged"
}

// Result describes the outcome of reconciling one Target.
type Result struct {
	Target Target
	Action Action
	Record Record // the record as it stands after the run
}

// Reconciler brings one record in a zone in line with a Target.
type Reconciler struct {
	Provider Provider
	Zone     string
	Logger   logrus.FieldLogger
}

// Reconcile fetches the zone's records and then leaves the matching record alone,
// edits it, or creates a new one.
// The record set is fetched fresh on every call.
func (r *Reconciler) Reconcile(ctx context.Context, t Target) (Result, error) {
	log := r.Logger
	if log == nil {
		log = discard
	}
	log = log.WithField("record", t.Name)

	records, err := r.Provider.ListRecords(ctx, r.Zone)
	if err != nil {
		return Result{Target: t}, providerError("list", r.Zone, err)
	}
	log.Debugf("%s records: %+v", r.Zone, records)

	existing, found := Match(records, t)
	if found && existing.Type == t.Type && existing.Content == t.Content {
		log.Debug("Identical record already exists.")
		return Result{Target: t, Action: Unchanged, Record: existing}, nil
	}

	params := RecordParams{
		Type:        t.Type,
		Name:        t.Name,
		Content:     t.Content,
		ServiceMode: t.ServiceMode,
	}
	if found {
		log.Infof("Found existing record with id: %s", existing.ID)
		rec, err := r.Provider.EditRecord(ctx, r.Zone, existing.ID, params)
		if err != nil {
			return Result{Target: t, Record: existing}, providerError("edit", r.Zone, err)
		}
		log.Infof("Updated record: %s %s %s", t.Name, t.Type, t.Content)
		log.Debugf("Response from provider: %+v", rec)
		return Result{Target: t, Action: Updated, Record: rec}, nil
	}

	log.Debug("The record doesn't exist, adding it...")
	rec, err := r.Provider.CreateRecord(ctx, r.Zone, params)
	if err != nil {
		return Result{Target: t}, providerError("create", r.Zone, err)
	}
	log.Infof("Added new record: %s %s %s", t.Name, t.Type, t.Content)
	log.Debugf("Response from provider: %+v", rec)
	return Result{Target: t, Action: Created, Record: rec}, nil
}

// Match picks the record that t should be reconciled against.
//
// Only records whose name equals t.Name (ignoring case) are considered.
// In order of preference it returns:
// a record of the same type that already has t's content,
// the first record of the same type,
// or the first other record with the name that is not an A or AAAA record.
// The last case converts a record of a different type rather than adding one beside it.
// Address records are never converted,
// so an A and an AAAA record for the same name can be kept side by side.
func Match(records []Record, t Target) (Record, bool) {
	byType, byName := -1, -1
	for i, rec := range records {
		if !strings.EqualFold(strings.TrimSuffix(rec.Name, "."), t.Name) {
			continue
		}
		if rec.Type == t.Type {
			if rec.Content == t.Content {
				return rec, true
			}
			if byType < 0 {
				byType = i
			}
		}
		if byName < 0 && !rec.Type.address() {
			byName = i
		}
	}
	switch {
	case byType >= 0:
		return records[byType], true
	case byName >= 0:
		return records[byName], true
	}
	return Record{}, false
}

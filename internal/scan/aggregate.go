package scan

import (
	"github.com/nhle/mailsweep/internal/model"
)

// Aggregator folds classified messages into per-domain records and the
// personalized-sender list. It is a pure accumulator: one writer, no
// I/O, and nothing mutates its records after the run completes.
type Aggregator struct {
	domains      map[string]*model.DomainRecord
	personalized []model.PersonalizedRecord
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		domains: make(map[string]*model.DomainRecord),
	}
}

// Fold merges one classified message into the aggregate state.
func (a *Aggregator) Fold(msg *model.NormalizedMessage, cls model.Classification) {
	rec, ok := a.domains[msg.SenderDomain]
	if !ok {
		rec = model.NewDomainRecord(msg.SenderDomain)
		rec.LastUpdated = msg.Arrival
		a.domains[msg.SenderDomain] = rec
	}

	for _, tag := range cls.Categories {
		rec.Categories[tag] = struct{}{}
	}

	if _, seen := rec.UniqueSenders[msg.SenderAddr]; !seen {
		rec.UniqueSenders[msg.SenderAddr] = struct{}{}
		rec.SenderList = append(rec.SenderList, msg.SenderAddr)
	}

	rec.TotalEmails++

	// Last write wins: the most recently folded message with an
	// unsubscribe mechanism owns the record's unsubscribe info.
	if cls.Unsubscribe != nil {
		rec.Unsubscribe = cls.Unsubscribe
		rec.LastUpdated = msg.Arrival
	}

	if cls.Personalized {
		a.personalized = append(a.personalized, model.PersonalizedRecord{
			SenderName: msg.SenderName,
			SenderAddr: msg.SenderAddr,
			RawHeader:  msg.RawHeader,
		})
	}
}

// Domains returns the per-domain records keyed by sender domain.
func (a *Aggregator) Domains() map[string]*model.DomainRecord {
	return a.domains
}

// Personalized returns the personalized-sender records in the order
// their messages were folded.
func (a *Aggregator) Personalized() []model.PersonalizedRecord {
	return a.personalized
}

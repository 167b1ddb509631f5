package campaign

import (
	"github.com/lotworks/dunner/config"
)

// DateMode says what a transition does to the opportunity's mailer-date
// list.
type DateMode int

const (
	// DateKeep leaves the list untouched. Releasing a hold sends no mail.
	DateKeep DateMode = iota
	// DateReplace starts the list over with today. The first notice is
	// the start of a fresh ladder, whatever an older run left behind.
	DateReplace
	// DateAppend adds today to the end of the list.
	DateAppend
)

// Transition is one legal stage move: where the opportunity goes, which
// letter template the new stage mails under, and how the mailer-date
// list changes. TouchParent marks the transitions that stamp the lead's
// last-mail date.
type Transition struct {
	To          string
	Template    string
	Dates       DateMode
	TouchParent bool
}

// Table maps a from-stage id to its one permitted transition. Stages
// absent from the table (paid, error, terminal) have no move; the engine
// reports those records ineligible rather than guessing.
type Table map[string]Transition

// NewTable builds the dunning ladder from configured stage and template
// ids:
//
//	unpaid  -> stage1  (first notice, date list restarted)
//	stage1  -> stage2  (second notice, date appended)
//	stage2  -> stage3  (final notice, date appended)
//	hold    -> unpaid  (hold release, no mail)
func NewTable(campaign config.CampaignConfig) Table {
	stages := campaign.Stages
	templates := campaign.Templates
	return Table{
		stages.Unpaid: {To: stages.Stage1, Template: templates.Round1, Dates: DateReplace, TouchParent: true},
		stages.Stage1: {To: stages.Stage2, Template: templates.Round2, Dates: DateAppend, TouchParent: true},
		stages.Stage2: {To: stages.Stage3, Template: templates.Round3, Dates: DateAppend, TouchParent: true},
		stages.Hold:   {To: stages.Unpaid, Dates: DateKeep},
	}
}

// Next looks up the transition out of a stage.
func (t Table) Next(fromStatusID string) (Transition, bool) {
	tr, ok := t[fromStatusID]
	return tr, ok
}

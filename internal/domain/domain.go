package domain

import (
	"github.com/yungbote/solace-backend/internal/domain/matching"
	"github.com/yungbote/solace-backend/internal/domain/vents"
)

const (
	VentKindVent    = vents.KindVent
	VentKindJournal = vents.KindJournal

	MatchStatusPending   = matching.StatusPending
	MatchStatusAccepted  = matching.StatusAccepted
	MatchStatusRejected  = matching.StatusRejected
	MatchStatusUnmatched = matching.StatusUnmatched
)

type (
	Vent = vents.Vent

	Match         = matching.Match
	MatchEvidence = matching.MatchEvidence
	MatchEmotion  = matching.MatchEmotion
	PairKey       = matching.PairKey
	ContentKey    = matching.ContentKey
	Neighbor      = matching.Neighbor
)

var (
	CanonicalPair    = matching.CanonicalPair
	CanonicalContent = matching.CanonicalContent
)

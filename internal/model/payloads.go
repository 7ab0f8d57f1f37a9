package model

import "time"

// GameAccount is one game role linked to a Hoyolab account, as returned by
// the account-listing call made during cookie submission.
type GameAccount struct {
	UID      string `json:"uid"`
	Level    int    `json:"level"`
	Nickname string `json:"nickname"`
	Server   string `json:"server,omitempty"`
}

// Notes is the real-time note payload: resin, commissions, realm currency,
// transformer and expedition state. ServerName is resolved from the uid
// prefix for the renderer's benefit.
type Notes struct {
	UID        string `json:"uid"`
	ServerName string `json:"serverName,omitempty"`

	CurrentResin      int       `json:"currentResin"`
	MaxResin          int       `json:"maxResin"`
	ResinRecoveryTime time.Time `json:"resinRecoveryTime"`

	CompletedCommissions    int `json:"completedCommissions"`
	MaxCommissions          int `json:"maxCommissions"`
	RemainingResinDiscounts int `json:"remainingResinDiscounts"`

	CurrentRealmCurrency      int       `json:"currentRealmCurrency"`
	MaxRealmCurrency          int       `json:"maxRealmCurrency"`
	RealmCurrencyRecoveryTime time.Time `json:"realmCurrencyRecoveryTime"`

	TransformerReady        bool      `json:"transformerReady"`
	TransformerRecoveryTime time.Time `json:"transformerRecoveryTime"`

	Expeditions []Expedition `json:"expeditions,omitempty"`
}

type Expedition struct {
	CharacterName  string    `json:"characterName,omitempty"`
	Finished       bool      `json:"finished"`
	CompletionTime time.Time `json:"completionTime"`
}

// SpiralAbyss is one cycle of abyss combat records.
type SpiralAbyss struct {
	Season       int          `json:"season"`
	StartTime    time.Time    `json:"startTime"`
	EndTime      time.Time    `json:"endTime"`
	MaxFloor     string       `json:"maxFloor"`
	TotalBattles int          `json:"totalBattles"`
	TotalStars   int          `json:"totalStars"`
	Ranks        AbyssRanks   `json:"ranks"`
	Floors       []AbyssFloor `json:"floors,omitempty"`
}

type AbyssRanks struct {
	MostKills       []AbyssRankEntry `json:"mostKills,omitempty"`
	StrongestStrike []AbyssRankEntry `json:"strongestStrike,omitempty"`
	MostDamageTaken []AbyssRankEntry `json:"mostDamageTaken,omitempty"`
	MostBurstsUsed  []AbyssRankEntry `json:"mostBurstsUsed,omitempty"`
	MostSkillsUsed  []AbyssRankEntry `json:"mostSkillsUsed,omitempty"`
}

type AbyssRankEntry struct {
	CharacterID int `json:"characterId"`
	Value       int `json:"value"`
}

type AbyssFloor struct {
	Floor    int            `json:"floor"`
	Stars    int            `json:"stars"`
	Chambers []AbyssChamber `json:"chambers,omitempty"`
}

type AbyssChamber struct {
	Chamber      int     `json:"chamber"`
	Stars        int     `json:"stars"`
	CharacterIDs [][]int `json:"characterIds,omitempty"`
}

// Diary is one month of traveler's diary income.
type Diary struct {
	UID      string `json:"uid"`
	Nickname string `json:"nickname,omitempty"`
	Month    int    `json:"month"`

	CurrentPrimogems int `json:"currentPrimogems"`
	LastPrimogems    int `json:"lastPrimogems"`
	PrimogemsRate    int `json:"primogemsRate"`
	CurrentMora      int `json:"currentMora"`
	LastMora         int `json:"lastMora"`
	MoraRate         int `json:"moraRate"`

	Categories []DiaryCategory `json:"categories,omitempty"`
}

type DiaryCategory struct {
	Name       string `json:"name"`
	Amount     int    `json:"amount"`
	Percentage int    `json:"percentage"`
}

// RecordCard is the per-game summary card shown on a Hoyolab profile.
type RecordCard struct {
	UID        string          `json:"uid"`
	Nickname   string          `json:"nickname,omitempty"`
	Level      int             `json:"level"`
	ServerName string          `json:"serverName,omitempty"`
	Entries    []RecordCardRow `json:"entries,omitempty"`
}

type RecordCardRow struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PartialStats is the subset of user stats paired with the record card.
type PartialStats struct {
	ActiveDays        int `json:"activeDays"`
	Achievements      int `json:"achievements"`
	CharacterCount    int `json:"characterCount"`
	SpiralAbyssFloor  string `json:"spiralAbyssFloor,omitempty"`
	AnemoculusCount   int `json:"anemoculusCount"`
	GeoculusCount     int `json:"geoculusCount"`
	ElectroculusCount int `json:"electroculusCount"`
	ChestCount        int `json:"chestCount"`
}

// Character is one owned character with its weapon and artifact loadout.
type Character struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Element       string `json:"element,omitempty"`
	Rarity        int    `json:"rarity"`
	Level         int    `json:"level"`
	Friendship    int    `json:"friendship"`
	Constellation int    `json:"constellation"`
	Icon          string `json:"icon,omitempty"`

	Weapon    CharacterWeapon     `json:"weapon"`
	Artifacts []CharacterArtifact `json:"artifacts,omitempty"`
}

type CharacterWeapon struct {
	Name       string `json:"name"`
	Rarity     int    `json:"rarity"`
	Level      int    `json:"level"`
	Refinement int    `json:"refinement"`
}

type CharacterArtifact struct {
	PosName string `json:"posName"`
	Name    string `json:"name"`
	SetName string `json:"setName,omitempty"`
}

// DailyReward is the item granted by a successful daily check-in claim.
type DailyReward struct {
	Name   string `json:"name"`
	Amount int    `json:"amount"`
}

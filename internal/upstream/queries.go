// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package upstream

import (
	"fmt"
	"sort"
)

// Dataset is a named GraphQL query served under /api/tarkov/{name}.
type Dataset struct {
	Name  string
	Query string
	// Collections are the top-level data members the query returns.
	Collections []string
	// AllowPartial accepts responses carrying both data and errors.
	AllowPartial bool
}

// Variables builds the query variables for a language and game mode.
func (d Dataset) Variables(lang, gameMode string) map[string]any {
	return map[string]any{
		"lang":     lang,
		"gameMode": gameMode,
	}
}

const taskCoreQuery = `query TarkovTasksCore($lang: LanguageCode, $gameMode: GameMode) {
  tasks(lang: $lang, gameMode: $gameMode) {
    id
    tarkovDataId
    name
    normalizedName
    kappaRequired
    lightkeeperRequired
    experience
    minPlayerLevel
    factionName
    restartable
    wikiLink
    trader { id name normalizedName }
    map { id name normalizedName }
    taskRequirements { task { id name } status }
    traderRequirements { trader { id name } requirementType compareMethod value }
    failConditions {
      id
      type
      ... on TaskObjectiveTaskStatus { task { id name } status }
    }
  }
}`

const taskObjectivesQuery = `query TarkovTaskObjectives($lang: LanguageCode, $gameMode: GameMode) {
  tasks(lang: $lang, gameMode: $gameMode) {
    id
    objectives {
      id
      type
      description
      optional
      maps { id name }
      ... on TaskObjectiveItem { count foundInRaid items { id name shortName } }
      ... on TaskObjectiveShoot { count targetNames zoneNames }
      ... on TaskObjectiveQuestItem { count questItem { id name } }
      ... on TaskObjectiveMark { markerItem { id name } }
      ... on TaskObjectiveSkill { skillLevel { name level skill { id name } } }
      ... on TaskObjectiveTraderLevel { trader { id name } level }
      ... on TaskObjectivePlayerLevel { playerLevel }
      ... on TaskObjectiveExperience { count }
      ... on TaskObjectiveUseItem { count useAny { id name } }
    }
  }
}`

const taskRewardsQuery = `query TarkovTaskRewards($lang: LanguageCode, $gameMode: GameMode) {
  tasks(lang: $lang, gameMode: $gameMode) {
    id
    startRewards {
      items { count item { id name shortName } }
      traderStanding { trader { id name } standing }
    }
    finishRewards {
      items { count item { id name shortName } }
      traderStanding { trader { id name } standing }
      skillLevelReward { name level skill { id name } }
      offerUnlock { id trader { id name } level item { id name } }
      traderUnlock { id name }
    }
  }
}`

const hideoutQuery = `query TarkovHideout($lang: LanguageCode, $gameMode: GameMode) {
  hideoutStations(lang: $lang, gameMode: $gameMode) {
    id
    name
    normalizedName
    levels {
      id
      level
      constructionTime
      description
      itemRequirements { id count quantity item { id name shortName } attributes { type name value } }
      stationLevelRequirements { id station { id name } level }
      skillRequirements { id name level skill { id name } }
      traderRequirements { id trader { id name } requirementType compareMethod value }
    }
  }
}`

const itemsQuery = `query TarkovItems($lang: LanguageCode, $gameMode: GameMode) {
  items(lang: $lang, gameMode: $gameMode) {
    id
    name
    shortName
    normalizedName
    width
    height
    types
    iconLink
    gridImageLink
    wikiLink
    link
    basePrice
    avg24hPrice
    category { id name normalizedName }
  }
}`

const prestigeQuery = `query TarkovPrestige($lang: LanguageCode, $gameMode: GameMode) {
  prestige(lang: $lang, gameMode: $gameMode) {
    id
    name
    prestigeLevel
    imageLink
    conditions { id type description }
    rewards { items { count item { id name } } }
  }
}`

const tradersQuery = `query TarkovTraders($lang: LanguageCode, $gameMode: GameMode) {
  traders(lang: $lang, gameMode: $gameMode) {
    id
    name
    normalizedName
    imageLink
    levels { id level requiredPlayerLevel requiredReputation requiredCommerce }
  }
}`

const mapsQuery = `query TarkovMaps($lang: LanguageCode, $gameMode: GameMode) {
  maps(lang: $lang, gameMode: $gameMode) {
    id
    tarkovDataId
    name
    normalizedName
    wiki
    raidDuration
    players
    enemies
    extracts { id name faction }
  }
}`

const playerLevelsQuery = `query TarkovPlayerLevels($lang: LanguageCode, $gameMode: GameMode) {
  playerLevels(lang: $lang, gameMode: $gameMode) {
    level
    exp
    levelBadgeImageLink
  }
}`

const bootstrapQuery = `query TarkovBootstrap($lang: LanguageCode, $gameMode: GameMode) {
  playerLevels(lang: $lang, gameMode: $gameMode) { level exp }
  traders(lang: $lang, gameMode: $gameMode) { id name normalizedName }
  maps(lang: $lang, gameMode: $gameMode) { id name normalizedName }
}`

var datasets = map[string]Dataset{
	"tasks-core":       {Name: "tasks-core", Query: taskCoreQuery, Collections: []string{"tasks"}},
	"tasks-objectives": {Name: "tasks-objectives", Query: taskObjectivesQuery, Collections: []string{"tasks"}},
	"tasks-rewards":    {Name: "tasks-rewards", Query: taskRewardsQuery, Collections: []string{"tasks"}},
	"hideout":          {Name: "hideout", Query: hideoutQuery, Collections: []string{"hideoutStations"}},
	"items":            {Name: "items", Query: itemsQuery, Collections: []string{"items"}, AllowPartial: true},
	"prestige":         {Name: "prestige", Query: prestigeQuery, Collections: []string{"prestige"}},
	"traders":          {Name: "traders", Query: tradersQuery, Collections: []string{"traders"}},
	"maps":             {Name: "maps", Query: mapsQuery, Collections: []string{"maps"}},
	"player-levels":    {Name: "player-levels", Query: playerLevelsQuery, Collections: []string{"playerLevels"}},
	"bootstrap":        {Name: "bootstrap", Query: bootstrapQuery, Collections: []string{"playerLevels", "traders", "maps"}},
}

// Lookup returns the dataset registered under name.
func Lookup(name string) (Dataset, error) {
	d, ok := datasets[name]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return d, nil
}

// Names returns the registered dataset names in sorted order.
func Names() []string {
	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

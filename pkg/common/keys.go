package common

import "strings"

// Local storage keys

const (
	TokenKey        = "authToken"
	UserKey         = "user"
	ReminderKey     = "exerciseReminder"
	DayExercisesKey = "fitlife-dayExercises"
	LegacyPlansKey  = "fitlife-localPlans"

	AppKeyPrefix   = "fitlife-"
	AuthKeyPrefix  = "auth"
	PlansKeyPrefix = "fitlife-plans-"
)

// Identifier prefixes

const (
	LocalPlanPrefix     = "local-"
	LocalExercisePrefix = "local-exercise-"
	TempIdPrefix        = "temp-"
)

func PlansKey(userId string) string {
	return PlansKeyPrefix + userId
}

func IsForeignPlansKey(key string, userId string) bool {
	if key == LegacyPlansKey {
		return true
	}
	return strings.HasPrefix(key, PlansKeyPrefix) && key != PlansKey(userId)
}

// PurgeForeignPlans removes the plan caches of every user but userId and the
// legacy global plan list. It returns the removed keys.
func PurgeForeignPlans(store LocalStoragePort, userId string) ([]string, error) {
	keys, err := store.Keys()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, key := range keys {
		if !IsForeignPlansKey(key, userId) {
			continue
		}
		if err := store.Remove(key); err != nil {
			return removed, err
		}
		removed = append(removed, key)
	}
	return removed, nil
}

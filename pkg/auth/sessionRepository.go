package auth

import (
	"encoding/json"
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/Alcereo/fitlife/pkg/crypt"
	log "github.com/sirupsen/logrus"
	"strings"
	"sync"
)

// SessionRepository owns every session key of the local storage.
type SessionRepository struct {
	mutex     sync.Mutex
	store     common.LocalStoragePort
	encryptor *crypt.Encryptor
}

// NewSessionRepository keeps the token encrypted at rest when encryptor is
// not nil.
func NewSessionRepository(store common.LocalStoragePort, encryptor *crypt.Encryptor) *SessionRepository {
	return &SessionRepository{
		store:     store,
		encryptor: encryptor,
	}
}

// SaveSession stores the token and, when given, the user profile.
func (repository *SessionRepository) SaveSession(token string, user *common.UserProfile) error {
	const stage = "Saving session error."
	repository.mutex.Lock()
	defer repository.mutex.Unlock()

	storedToken := token
	if repository.encryptor != nil {
		encrypted, err := repository.encryptor.EncryptFact(token)
		if err != nil {
			return newErr(stage, err)
		}
		storedToken = encrypted
	}
	if err := repository.store.Set(common.TokenKey, storedToken); err != nil {
		return newErr(stage, err)
	}

	if user == nil {
		log.Trace("Session saved without user data")
		return nil
	}
	userBytes, err := json.Marshal(user)
	if err != nil {
		return newErr(stage, err)
	}
	if err := repository.store.Set(common.UserKey, string(userBytes)); err != nil {
		return newErr(stage, err)
	}
	return nil
}

func (repository *SessionRepository) Token() (string, bool) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	return repository.token()
}

func (repository *SessionRepository) token() (string, bool) {
	storedToken, found := repository.store.Get(common.TokenKey)
	if !found || storedToken == "" {
		return "", false
	}
	if repository.encryptor == nil {
		return storedToken, true
	}
	token, err := repository.encryptor.DecryptFact(storedToken)
	if err != nil {
		log.Warnf("Stored token can't be decrypted. Reason: %v", err)
		return "", false
	}
	return token, true
}

// CurrentUser returns nil when no profile is stored or it can't be parsed.
func (repository *SessionRepository) CurrentUser() *common.UserProfile {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()

	userValue, found := repository.store.Get(common.UserKey)
	if !found || userValue == "" {
		return nil
	}
	var user common.UserProfile
	if err := json.Unmarshal([]byte(userValue), &user); err != nil {
		log.Warnf("Stored user data is corrupt. Reason: %v", err)
		return nil
	}
	return &user
}

func (repository *SessionRepository) IsAuthenticated() bool {
	_, found := repository.Token()
	return found
}

// ClearSession removes the session keys and temporary app data. Plan caches
// and the exercise reminder survive.
func (repository *SessionRepository) ClearSession() ([]string, error) {
	const stage = "Clearing session error."
	repository.mutex.Lock()
	defer repository.mutex.Unlock()

	candidates := []string{
		common.TokenKey,
		common.UserKey,
		common.DayExercisesKey,
		common.LegacyPlansKey,
	}
	keys, err := repository.store.Keys()
	if err != nil {
		return nil, newErr(stage, err)
	}
	for _, key := range keys {
		if isTemporaryKey(key) {
			candidates = append(candidates, key)
		}
	}

	var removed []string
	seen := make(map[string]bool)
	for _, key := range candidates {
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, found := repository.store.Get(key); !found {
			continue
		}
		if err := repository.store.Remove(key); err != nil {
			return removed, newErr(stage, err)
		}
		removed = append(removed, key)
	}
	log.Debugf("Session cleared. Removed keys: %v", removed)
	return removed, nil
}

func isTemporaryKey(key string) bool {
	if strings.HasPrefix(key, common.AppKeyPrefix) && !strings.HasPrefix(key, common.PlansKeyPrefix) {
		return true
	}
	return strings.HasPrefix(key, common.AuthKeyPrefix)
}

var _ common.TokenSource = (*SessionRepository)(nil)

// PurgeOtherUsers drops plan caches left by other accounts on this device.
func (repository *SessionRepository) PurgeOtherUsers(userId string) ([]string, error) {
	const stage = "Purging other users' plans error."
	repository.mutex.Lock()
	defer repository.mutex.Unlock()

	removed, err := common.PurgeForeignPlans(repository.store, userId)
	if err != nil {
		return removed, newErr(stage, err)
	}
	if len(removed) > 0 {
		log.Debugf("Removed plans of other users: %v", removed)
	}
	return removed, nil
}

// RemoveCredentials drops the token and the user profile only.
func (repository *SessionRepository) RemoveCredentials() error {
	const stage = "Removing credentials error."
	repository.mutex.Lock()
	defer repository.mutex.Unlock()

	for _, key := range []string{common.TokenKey, common.UserKey} {
		if err := repository.store.Remove(key); err != nil {
			return newErr(stage, err)
		}
	}
	return nil
}

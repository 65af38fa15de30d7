// internal/persistence/local_store.go
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Corphon/InfraAdvisor/internal/models"
	"github.com/Corphon/InfraAdvisor/internal/storage"
)

// LocalKeyPrefix 本地草稿键前缀
const LocalKeyPrefix = "form_"

// ErrDraftNotFound 本地不存在该草稿
var ErrDraftNotFound = errors.New("draft not found")

// LocalDraftStore 本地草稿存储，每个 form_id 一条记录
type LocalDraftStore struct {
	kv storage.KeyValueStore
}

// NewLocalDraftStore 基于键值存储创建本地草稿存储
func NewLocalDraftStore(kv storage.KeyValueStore) *LocalDraftStore {
	return &LocalDraftStore{kv: kv}
}

// LocalKey 返回 form_id 对应的存储键
func LocalKey(formID string) string {
	return LocalKeyPrefix + formID
}

// Save 写入草稿，覆盖同一 form_id 的旧记录
func (s *LocalDraftStore) Save(draft *models.Draft) error {
	data, err := json.Marshal(draft.ToLocalRecord())
	if err != nil {
		return fmt.Errorf("encode local draft: %w", err)
	}
	return s.kv.Set(LocalKey(draft.FormID), data)
}

// Load 读取草稿
func (s *LocalDraftStore) Load(formID string) (*models.Draft, error) {
	data, err := s.kv.Get(LocalKey(formID))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}

	var record models.LocalDraftRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode local draft %s: %w", formID, err)
	}
	return models.DraftFromLocalRecord(formID, record), nil
}

// Delete 删除草稿；不存在时不报错
func (s *LocalDraftStore) Delete(formID string) error {
	err := s.kv.Remove(LocalKey(formID))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Has 是否存在该草稿；formID 为空时判断是否存在任意草稿
func (s *LocalDraftStore) Has(formID string) bool {
	if formID == "" {
		keys, err := s.kv.Keys(LocalKeyPrefix)
		return err == nil && len(keys) > 0
	}
	_, err := s.kv.Get(LocalKey(formID))
	return err == nil
}

// List 枚举本地草稿，按保存时间倒序；损坏的记录被跳过
func (s *LocalDraftStore) List() ([]models.SavedFormSummary, error) {
	keys, err := s.kv.Keys(LocalKeyPrefix)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.SavedFormSummary, 0, len(keys))
	for _, key := range keys {
		draft, err := s.Load(strings.TrimPrefix(key, LocalKeyPrefix))
		if err != nil {
			continue
		}
		summaries = append(summaries, draft.Summary(models.DraftSourceLocal))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].SavedAt.After(summaries[j].SavedAt)
	})
	return summaries, nil
}

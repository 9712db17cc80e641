package localstore

// KVStore 本地端 key-value 儲存原語
// guest cart 唯一的持久層依賴，不能碰網路
type KVStore interface {
	// Get 讀取 key，第二個回傳值表示 key 是否存在
	Get(key string) (string, bool, error)

	// Set 寫入 key，對呼叫端而言是原子性覆寫
	Set(key, value string) error

	// Remove 刪除 key，key 不存在視為成功
	Remove(key string) error
}

package redis

const (
	// KeyPrefix namespaces every key the store writes
	KeyPrefix = "warmup:"
	// KeyProducts is the list of JSON encoded products, in insertion order
	KeyProducts = KeyPrefix + "products"
	// KeyProductSeq is the counter used to assign product IDs
	KeyProductSeq = KeyPrefix + "products:seq"
	// KeyLatestUpdate is a one-member sorted set scoring the newest UpdatedAt, in unix microseconds
	KeyLatestUpdate = KeyPrefix + "products:latest_update"

	latestUpdateMember = "updated_at"
)

// ProductsKey returns the list key holding all products
func ProductsKey() string {
	return KeyProducts
}

// SeqKey returns the key of the ID counter
func SeqKey() string {
	return KeyProductSeq
}

// LatestUpdateKey returns the key tracking the newest product update
func LatestUpdateKey() string {
	return KeyLatestUpdate
}

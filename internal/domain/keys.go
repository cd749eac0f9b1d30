package domain

// KeyPrefix namespaces every key bimquery writes to the KV store.
const KeyPrefix = "bimquery:"

package models

// PageEmbedding is a page identifier with its embedding vector.
type PageEmbedding struct {
	PageID string    `json:"page_id"`
	Vector []float32 `json:"vector"`
}

// ClusterGroup is one cluster of page identifiers.
type ClusterGroup struct {
	PageIDs   []string `json:"page_ids"`
	ClusterID int      `json:"cluster_id"`
}

// ClusterResult partitions pages into clusters and noise.
type ClusterResult struct {
	Clusters []ClusterGroup `json:"clusters"`
	Noise    []string       `json:"noise"`
}

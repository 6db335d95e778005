package clustering

import "github.com/thebtf/notionflow-ai/pkg/models"

// ItemsFromPages converts page embeddings into clustering items.
func ItemsFromPages(pages []models.PageEmbedding) []Item {
	items := make([]Item, len(pages))
	for i, p := range pages {
		items[i] = Item{ID: p.PageID, Vector: p.Vector}
	}
	return items
}

// ClusterResult converts r into the wire model posted to the web application.
func (r *Result) ClusterResult() models.ClusterResult {
	out := models.ClusterResult{
		Clusters: make([]models.ClusterGroup, len(r.Clusters)),
		Noise:    r.Noise,
	}
	if out.Noise == nil {
		out.Noise = []string{}
	}
	for i, c := range r.Clusters {
		out.Clusters[i] = models.ClusterGroup{ClusterID: c.ID, PageIDs: c.Members}
	}
	return out
}

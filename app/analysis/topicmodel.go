package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
)

const maxVocabularyFeatures = 500

// Topic is a cluster of posts described by its dominant keywords.
// Confidence (0-100) reflects how tightly the member posts sit around
// the cluster centroid.
type Topic struct {
	Keywords   []string
	PostIDs    []int64
	Confidence float64
}

// TopicModel turns a window of posts into keyword topics using TF-IDF
// vectors and a pluggable clusterer.
type TopicModel struct {
	clusterer Clusterer
}

func NewTopicModel(clusterer Clusterer) *TopicModel {
	return &TopicModel{clusterer: clusterer}
}

// Run clusters the posts into at most k topics with wordsPerTopic keywords
// each. Posts whose text tokenizes to nothing are skipped. Returns topics
// ordered by descending member count.
func (m *TopicModel) Run(posts []*database.Post, k, wordsPerTopic int) ([]Topic, error) {
	var docs [][]string
	var docPosts []*database.Post
	for _, post := range posts {
		tokens := Tokenize(post.Title + " " + post.Content)
		if len(tokens) == 0 {
			continue
		}
		docs = append(docs, tokens)
		docPosts = append(docPosts, post)
	}

	if len(docs) == 0 {
		return nil, nil
	}

	vectorizer := NewVectorizer(maxVocabularyFeatures)
	vectors := vectorizer.FitTransform(docs)

	clusters, err := m.clusterer.Fit(vectors, k)
	if err != nil {
		return nil, fmt.Errorf("failed to cluster posts: %w", err)
	}

	var topics []Topic
	for _, cluster := range clusters {
		if len(cluster.Members) == 0 {
			continue
		}

		topic := Topic{
			Keywords:   topKeywords(cluster.Centroid, vectorizer, wordsPerTopic),
			Confidence: clusterConfidence(cluster, vectors),
		}
		for _, idx := range cluster.Members {
			topic.PostIDs = append(topic.PostIDs, docPosts[idx].ID)
		}
		topics = append(topics, topic)
	}

	sort.SliceStable(topics, func(i, j int) bool {
		return len(topics[i].PostIDs) > len(topics[j].PostIDs)
	})

	return topics, nil
}

func topKeywords(centroid []float64, vectorizer *Vectorizer, count int) []string {
	type weighted struct {
		index  int
		weight float64
	}

	var dims []weighted
	for i, w := range centroid {
		if w > 0 {
			dims = append(dims, weighted{index: i, weight: w})
		}
	}
	sort.Slice(dims, func(i, j int) bool {
		if dims[i].weight != dims[j].weight {
			return dims[i].weight > dims[j].weight
		}
		return dims[i].index < dims[j].index
	})

	if len(dims) > count {
		dims = dims[:count]
	}
	keywords := make([]string, len(dims))
	for i, d := range dims {
		keywords[i] = vectorizer.Term(d.index)
	}
	return keywords
}

// clusterConfidence is the mean cosine similarity between members and
// their centroid, scaled to 0-100.
func clusterConfidence(cluster Cluster, vectors [][]float64) float64 {
	var centroidNorm float64
	for _, w := range cluster.Centroid {
		centroidNorm += w * w
	}
	centroidNorm = math.Sqrt(centroidNorm)
	if centroidNorm == 0 {
		return 0
	}

	var total float64
	for _, idx := range cluster.Members {
		var dot float64
		for d, w := range vectors[idx] {
			dot += w * cluster.Centroid[d]
		}
		total += dot / centroidNorm
	}

	return min(total/float64(len(cluster.Members))*100, 100)
}

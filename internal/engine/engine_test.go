package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/rand"
	"slices"
	"testing"
)

func TestRunScenario(t *testing.T) {
	res, err := Run(scenarioItems(), DefaultParams())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.Clusters) != 1 {
		t.Fatalf("len(Clusters) = %d; want 1", len(res.Clusters))
	}
	c := res.Clusters[0]
	if c.ID != 0 {
		t.Errorf("cluster id = %d; want 0", c.ID)
	}
	if got := memberIDs(c.Members); !slices.Equal(got, []string{"B", "A", "C"}) {
		t.Errorf("members = %v; want [B A C]", got)
	}
	if c.Recommended.ID != "B" {
		t.Errorf("recommended = %s; want B", c.Recommended.ID)
	}
	if got := memberIDs(res.Unclustered); !slices.Equal(got, []string{"D", "E"}) {
		t.Errorf("unclustered = %v; want [D E]", got)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	res, err := Run(nil, DefaultParams())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Clusters) != 0 || len(res.Unclustered) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if res.Clusters == nil || res.Unclustered == nil {
		t.Error("expected non-nil empty slices")
	}
}

func TestRunInvalidParams(t *testing.T) {
	_, err := Run(scenarioItems(), Params{Eps: 0, MinSamples: 2})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Run() error = %v; want ErrInvalidInput", err)
	}
}

func TestRunPlacesEveryItemOnce(t *testing.T) {
	for seed := range int64(10) {
		items := blobs(rand.New(rand.NewSource(seed)), 5, 8, 12)
		res, err := Run(items, Params{Eps: 0.1, MinSamples: 3})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		seen := make(map[string]int)
		for _, c := range res.Clusters {
			if len(c.Members) == 0 {
				t.Fatalf("seed %d: cluster %d is empty", seed, c.ID)
			}
			if c.Recommended != c.Members[0] {
				t.Errorf("seed %d: recommended is not members[0]", seed)
			}
			for i := 1; i < len(c.Members); i++ {
				if c.Members[i].Quality.Effective() > c.Members[i-1].Quality.Effective() {
					t.Errorf("seed %d: cluster %d not sorted at %d", seed, c.ID, i)
				}
			}
			for _, m := range c.Members {
				seen[m.ID]++
			}
		}
		for _, m := range res.Unclustered {
			seen[m.ID]++
		}

		for _, item := range items {
			if seen[item.ID] != 1 {
				t.Errorf("seed %d: item %s placed %d times", seed, item.ID, seen[item.ID])
			}
		}
	}
}

func TestAssembleIdempotent(t *testing.T) {
	items := blobs(rand.New(rand.NewSource(9)), 3, 6, 8)
	a, err := Cluster(items, 0.1, 2)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	clusters, unclustered, err := Rank(a.Groups(), QualityOf(items))
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	type record struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	project := func(m Member) record {
		return record{Name: "photo-" + m.ID, Score: m.Quality.Value}
	}

	first, err := json.Marshal(Assemble(clusters, unclustered, project))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	second, err := json.Marshal(Assemble(clusters, unclustered, project))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Assemble produced different output for identical input")
	}
}

func TestAssembleDoesNotAlias(t *testing.T) {
	clusters := []RankedCluster{{
		ID:          0,
		Members:     []Member{{ID: "a", Quality: Score(2)}, {ID: "b", Quality: Score(1)}},
		Recommended: Member{ID: "a", Quality: Score(2)},
	}}
	unclustered := []Member{{ID: "n", Quality: Score(1)}}

	res := Assemble(clusters, unclustered, Identity)
	res.Clusters[0].Members[0].ID = "changed"
	res.Unclustered[0].ID = "changed"

	if clusters[0].Members[0].ID != "a" || unclustered[0].ID != "n" {
		t.Error("Assemble result aliases its input")
	}
}

func TestRunDeterministicAcrossRuns(t *testing.T) {
	items := blobs(rand.New(rand.NewSource(21)), 4, 12, 16)

	first, err := Run(items, Params{Eps: 0.1, MinSamples: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want, _ := json.Marshal(first)

	for range 3 {
		again, err := Run(items, Params{Eps: 0.1, MinSamples: 2})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		got, _ := json.Marshal(again)
		if !bytes.Equal(got, want) {
			t.Fatal("Run output changed between identical runs")
		}
	}
}

package engine

// Assemble projects ranked clusters and unclustered members to caller
// records. Cluster order and member order are kept as given. project must be
// a read-only lookup; it is called once per member and once per
// recommendation. The returned slices are freshly allocated and never nil.
func Assemble[R any](clusters []RankedCluster, unclustered []Member, project func(Member) R) Result[R] {
	out := Result[R]{
		Clusters:    make([]ClusterResult[R], 0, len(clusters)),
		Unclustered: make([]R, 0, len(unclustered)),
	}

	for _, c := range clusters {
		if len(c.Members) == 0 {
			continue
		}
		members := make([]R, len(c.Members))
		for i, m := range c.Members {
			members[i] = project(m)
		}
		out.Clusters = append(out.Clusters, ClusterResult[R]{
			ID:          c.ID,
			Members:     members,
			Recommended: project(c.Recommended),
		})
	}

	for _, m := range unclustered {
		out.Unclustered = append(out.Unclustered, project(m))
	}
	return out
}

// Identity is the projection that keeps engine members as they are.
func Identity(m Member) Member { return m }

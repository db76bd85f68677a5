package engine

// Run clusters items, ranks every group and assembles the result with
// engine members as records.
func Run(items []Item, p Params, opts ...Option) (Result[Member], error) {
	return RunWith(items, p, Identity, opts...)
}

// RunWith is Run with a caller projection.
func RunWith[R any](items []Item, p Params, project func(Member) R, opts ...Option) (Result[R], error) {
	assignment, err := Cluster(items, p.Eps, p.MinSamples, opts...)
	if err != nil {
		return Result[R]{}, err
	}

	clusters, unclustered, err := Rank(assignment.Groups(), QualityOf(items))
	if err != nil {
		return Result[R]{}, err
	}

	return Assemble(clusters, unclustered, project), nil
}

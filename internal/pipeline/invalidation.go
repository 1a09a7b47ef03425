package pipeline

// downstreamTable records which stages consume another stage's artifact.
// Regenerating a stage invalidates everything reachable from it here. The
// table follows artifact dependencies, not raw pipeline order: the script
// does not depend on the photos, so regenerating images leaves an approved
// script alone while still invalidating a composed video.
var downstreamTable = map[StageType][]StageType{
	StageImageDownload:     {StageImageProcess},
	StageImageProcess:      {StageVideoCompose},
	StageScriptGenerate:    {StageVoiceoverGenerate},
	StageVoiceoverGenerate: {StageVideoCompose},
	StageQRGenerate:        {StageVideoCompose},
	StageVideoCompose:      {},
}

// Downstream returns the stages that directly consume the given stage's
// artifact.
func Downstream(stage StageType) []StageType {
	deps := downstreamTable[stage]
	cp := make([]StageType, len(deps))
	copy(cp, deps)
	return cp
}

// TransitiveDownstream returns every stage whose artifact becomes stale when
// the given stage is regenerated, in pipeline order.
func TransitiveDownstream(stage StageType) []StageType {
	stale := make(map[StageType]struct{})
	var walk func(StageType)
	walk = func(s StageType) {
		for _, dep := range downstreamTable[s] {
			if _, seen := stale[dep]; seen {
				continue
			}
			stale[dep] = struct{}{}
			walk(dep)
		}
	}
	walk(stage)

	ordered := make([]StageType, 0, len(stale))
	for _, s := range allStages {
		if _, ok := stale[s]; ok {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

package ast

import (
	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/space"
)

// PipelineDesc is a pipeline as written: an optional head (a turtle of the
// source, or a named query), an optional refinement of the head's first
// stage, and the stages that follow.
type PipelineDesc struct {
	node
	HeadName       string
	HeadRefinement *QueryDesc
	Segments       []*QueryDesc
}

func NewPipelineDesc(headName string) *PipelineDesc {
	return &PipelineDesc{HeadName: headName}
}

func (*PipelineDesc) ElementType() string { return "pipelineDesc" }

// RefineHead sets the refinement applied to the first stage of the head.
func (p *PipelineDesc) RefineHead(refinement *QueryDesc) *PipelineDesc {
	p.HeadRefinement = refinement
	p.has(p, "headRefinement", refinement)
	return p
}

// AddSegments appends stages.
func (p *PipelineDesc) AddSegments(segs ...*QueryDesc) *PipelineDesc {
	p.Segments = append(p.Segments, segs...)
	p.hasList(p, "segments", elements(p.Segments))
	return p
}

// QueryFromSource builds a query starting at src.
func (p *PipelineDesc) QueryFromSource(ctx *Context, src Source) *model.Query {
	ref := src.StructRef(ctx)
	def := ref.Def
	if def == nil {
		def = src.StructDef(ctx)
	}
	return p.queryFromStruct(ctx, ref, def)
}

// queryFromStruct builds a query over def, which ref refers to.
func (p *PipelineDesc) queryFromStruct(ctx *Context, ref model.StructRef, def *model.StructDef) *model.Query {
	var pipeline []model.Segment
	if p.HeadName != "" {
		turtle, ok := def.Field(p.HeadName)
		switch {
		case !ok:
			ctx.undefined(p, turtleNames(def), "Reference to undefined explore query '%s'", p.HeadName)
			p.discardRefinement(ctx, def)
		case turtle.Type != model.TypeTurtle:
			ctx.Log(p, "'%s' is not a query", p.HeadName)
			p.discardRefinement(ctx, def)
		default:
			pipeline = p.refineHead(ctx, model.ClonePipeline(turtle.Pipeline), def)
		}
	} else {
		pipeline = p.refineHead(ctx, nil, def)
	}
	pipeline = p.appendSegments(ctx, def, pipeline)
	return &model.Query{StructRef: ref, Pipeline: pipeline}
}

// QueryFromQuery builds a query starting at the named query HeadName.
func (p *PipelineDesc) QueryFromQuery(ctx *Context) *model.Query {
	if p.HeadName == "" {
		ctx.InternalError(p, "can't make query from nameless query")
	}
	e, ok := ctx.Lookup(p.HeadName)
	if !ok {
		ctx.undefined(p, ctx.namespaceNames(), "Reference to undefined query '%s'", p.HeadName)
		return model.ErrorQuery()
	}
	seed, isQuery := e.Object.(*model.Query)
	if !isQuery {
		ctx.Log(p, "Illegal reference to '%s', query expected", p.HeadName)
		return model.ErrorQuery()
	}

	result := seed.Clone()
	head := adopt(p, newQueryHeadStruct(result.StructRef))
	headDef := head.StructDef(ctx)
	result.Pipeline = p.refineHead(ctx, result.Pipeline, headDef)
	result.Pipeline = p.appendSegments(ctx, headDef, result.Pipeline)
	return result
}

// refineHead merges HeadRefinement into the first stage of pipeline, which
// reads input. With no stages to refine the refinement becomes the first.
func (p *PipelineDesc) refineHead(ctx *Context, pipeline []model.Segment, input *model.StructDef) []model.Segment {
	if p.HeadRefinement == nil {
		return pipeline
	}
	if len(pipeline) == 0 {
		return append(pipeline, p.HeadRefinement.Segment(ctx, space.NewStatic(input)))
	}
	p.HeadRefinement.RefineFrom(pipeline[0])
	pipeline[0] = p.HeadRefinement.Segment(ctx, space.NewStatic(input))
	return pipeline
}

// discardRefinement resolves HeadRefinement against input for its
// diagnostics when there is no head for it to refine.
func (p *PipelineDesc) discardRefinement(ctx *Context, input *model.StructDef) {
	if p.HeadRefinement != nil {
		p.HeadRefinement.Segment(ctx, space.NewStatic(input))
	}
}

// appendSegments resolves the trailing stages left to right. Each stage
// reads the output shape of the stages before it, starting from input.
// Shapes are only computed when a trailing stage needs one.
func (p *PipelineDesc) appendSegments(ctx *Context, input *model.StructDef, pipeline []model.Segment) []model.Segment {
	shape := input
	walked := 0
	for _, qd := range p.Segments {
		for ; walked < len(pipeline); walked++ {
			shape = model.NextStructDef(shape, pipeline[walked])
		}
		pipeline = append(pipeline, qd.Segment(ctx, space.NewStatic(shape)))
	}
	if pipeline == nil {
		pipeline = []model.Segment{}
	}
	return pipeline
}

func turtleNames(def *model.StructDef) []string {
	var names []string
	for _, f := range def.Fields {
		if f.Type == model.TypeTurtle {
			names = append(names, f.Identifier())
		}
	}
	return names
}

// QueryElement is a query expression: FullQuery or ExistingQuery.
type QueryElement interface {
	Element
	Query(ctx *Context) *model.Query
	queryElement()
}

// FullQuery starts at a source.
type FullQuery struct {
	node
	Source   Source
	Pipeline *PipelineDesc
}

func NewFullQuery(src Source, pipe *PipelineDesc) *FullQuery {
	q := &FullQuery{Source: src, Pipeline: pipe}
	q.has(q, "explore", src)
	q.has(q, "pipeline", pipe)
	return q
}

func (*FullQuery) ElementType() string { return "fullQuery" }
func (*FullQuery) queryElement()       {}

func (q *FullQuery) Query(ctx *Context) *model.Query {
	return q.Pipeline.QueryFromSource(ctx, q.Source)
}

// ExistingQuery starts at a named query.
type ExistingQuery struct {
	node
	Pipeline *PipelineDesc
}

func NewExistingQuery(pipe *PipelineDesc) *ExistingQuery {
	q := &ExistingQuery{Pipeline: pipe}
	q.has(q, "queryDesc", pipe)
	return q
}

func (*ExistingQuery) ElementType() string { return "queryFromQuery" }
func (*ExistingQuery) queryElement()       {}

func (q *ExistingQuery) Query(ctx *Context) *model.Query {
	return q.Pipeline.QueryFromQuery(ctx)
}

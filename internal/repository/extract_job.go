package repository

import (
	"context"
	stdsql "database/sql"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/entity"
)

// TextOutcome is what the extraction stage reports for a job.
type TextOutcome struct {
	Path          string
	Confidence    float64
	LowQuality    bool
	AnnotatedText string
}

type ExtractJobRepository interface {
	Start(ctx context.Context, documentID uuid.UUID, format string) (*entity.ExtractJob, error)
	FinishOCRSuccess(ctx context.Context, jobID uuid.UUID, out TextOutcome) error
	FinishParseSuccess(ctx context.Context, jobID uuid.UUID, analysisJSON []byte, model string) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, code, message string) error
	// MarkFinished stamps finished_at without changing the status.
	MarkFinished(ctx context.Context, jobID uuid.UUID) error
	LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.ExtractJob, error)
}

var extractJobColumns = []string{
	"id", "document_id", "format", "status", "path", "confidence", "low_quality", "annotated_text",
	"analysis_json", "model_name", "error_code", "error_message", "started_at", "finished_at",
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log}
}

func (r *extractJobRepo) Start(ctx context.Context, documentID uuid.UUID, format string) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:         uuid.New(),
		DocumentID: documentID,
		Format:     format,
		Status:     string(constants.JobStatusRunning),
		StartedAt:  time.Now().UTC(),
	}
	query, args := r.db.builder().Insert(TableExtractJobs).
		Columns("id", "document_id", "format", "status", "low_quality", "started_at").
		Values(job.ID, job.DocumentID, job.Format, job.Status, false, job.StartedAt).
		Query()
	if _, err := exec(ctx, r.db.drv, query, args); err != nil {
		r.log.Error("extract_job start failed", "document_id", documentID, "err", err)
		return nil, dbError("start extract job", err)
	}
	r.log.Info("extract_job started", "job_id", job.ID, "document_id", documentID, "format", format)
	return job, nil
}

func (r *extractJobRepo) FinishOCRSuccess(ctx context.Context, jobID uuid.UUID, out TextOutcome) error {
	query, args := r.db.builder().Update(TableExtractJobs).
		Set("path", out.Path).
		Set("confidence", out.Confidence).
		Set("low_quality", out.LowQuality).
		Set("annotated_text", out.AnnotatedText).
		Set("status", string(constants.JobStatusTextOK)).
		Where(entsql.EQ("id", jobID)).
		Query()
	if err := r.update(ctx, query, args); err != nil {
		r.log.Error("extract_job finish(TEXT_OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job text extracted", "job_id", jobID, "path", out.Path, "confidence", out.Confidence)
	return nil
}

func (r *extractJobRepo) FinishParseSuccess(ctx context.Context, jobID uuid.UUID, analysisJSON []byte, model string) error {
	u := r.db.builder().Update(TableExtractJobs).
		Set("status", string(constants.JobStatusLLMOK)).
		Set("finished_at", time.Now().UTC())
	if len(analysisJSON) > 0 {
		u = u.Set("analysis_json", string(analysisJSON))
	}
	if model != "" {
		u = u.Set("model_name", model)
	}
	query, args := u.Where(entsql.EQ("id", jobID)).Query()
	if err := r.update(ctx, query, args); err != nil {
		r.log.Error("extract_job finish(LLM_OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished (LLM_OK)", "job_id", jobID, "model", model)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, code, message string) error {
	u := r.db.builder().Update(TableExtractJobs).
		Set("status", string(constants.JobStatusFailed)).
		Set("finished_at", time.Now().UTC()).
		Set("error_message", message)
	if code != "" {
		u = u.Set("error_code", code)
	}
	query, args := u.Where(entsql.EQ("id", jobID)).Query()
	if err := r.update(ctx, query, args); err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "code", code, "error", message)
	return nil
}

func (r *extractJobRepo) MarkFinished(ctx context.Context, jobID uuid.UUID) error {
	query, args := r.db.builder().Update(TableExtractJobs).
		Set("finished_at", time.Now().UTC()).
		Where(entsql.EQ("id", jobID)).
		Query()
	return r.update(ctx, query, args)
}

func (r *extractJobRepo) LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.ExtractJob, error) {
	b := r.db.builder()
	query, args := b.Select(extractJobColumns...).
		From(b.Table(TableExtractJobs)).
		Where(entsql.EQ("document_id", documentID)).
		OrderBy(entsql.Desc("started_at")).
		Limit(1).
		Query()
	jobs, err := queryExtractJobs(ctx, r.db.drv, query, args)
	if err != nil {
		return nil, dbError("get extract job", err)
	}
	if len(jobs) == 0 {
		return nil, notFound("extract job")
	}
	return jobs[0], nil
}

func (r *extractJobRepo) update(ctx context.Context, query string, args []any) error {
	n, err := exec(ctx, r.db.drv, query, args)
	if err != nil {
		return dbError("update extract job", err)
	}
	if n == 0 {
		return notFound("extract job")
	}
	return nil
}

func queryExtractJobs(ctx context.Context, q dialect.ExecQuerier, query string, args []any) ([]*entity.ExtractJob, error) {
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.ExtractJob
	for rows.Next() {
		var (
			j                                       entity.ExtractJob
			path, annotated, model, errCode, errMsg stdsql.NullString
			confidence                              stdsql.NullFloat64
			analysis                                []byte
			finished                                stdsql.NullTime
		)
		if err := rows.Scan(&j.ID, &j.DocumentID, &j.Format, &j.Status, &path, &confidence, &j.LowQuality, &annotated,
			&analysis, &model, &errCode, &errMsg, &j.StartedAt, &finished); err != nil {
			return nil, err
		}
		j.Path = nullString(path)
		j.AnnotatedText = nullString(annotated)
		j.ModelName = nullString(model)
		j.ErrorCode = nullString(errCode)
		j.ErrorMessage = nullString(errMsg)
		if confidence.Valid {
			j.Confidence = &confidence.Float64
		}
		if len(analysis) > 0 {
			j.AnalysisJSON = analysis
		}
		if finished.Valid {
			j.FinishedAt = &finished.Time
		}
		out = append(out, &j)
	}
	return out, rows.Err()
}

func nullString(s stdsql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

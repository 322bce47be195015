package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/mining"

	"github.com/go-playground/validator"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrUnknownKind = errors.New("unknown job kind")
	// ErrInvalidJob marks payloads that can never succeed.
	ErrInvalidJob = errors.New("invalid job")
)

const (
	KindImport      = "import"
	KindMerge       = "merge"
	KindValidate    = "validate"
	KindMine        = "mine"
	KindCombination = "combination"
	KindMatch       = "match"
)

// Job is implemented by every payload.
type Job interface {
	ID() string
	setID(id string)
}

type JobMeta struct {
	JobID string `json:"job_id"`
}

func (m *JobMeta) ID() string       { return m.JobID }
func (m *JobMeta) setID(id string) { m.JobID = id }

// ImportJob imports an ontology snapshot from a local path or s3:// uri.
type ImportJob struct {
	JobMeta
	Source   string `json:"source" validate:"required"`
	MaxDepth int    `json:"max_depth" validate:"min=0"`
}

type MergeJob struct {
	JobMeta
}

// ValidateJob validates Labels, or every topic label when Labels is empty.
type ValidateJob struct {
	JobMeta
	Labels []string `json:"labels" validate:"dive,required"`
}

type MineJob struct {
	JobMeta
	mining.Params
}

type CombinationJob struct {
	JobMeta
	PaperIDs []string `json:"paper_ids" validate:"required,min=1,dive,required"`
	MaxK     int      `json:"max_k" validate:"min=0"`
	Repair   *bool    `json:"repair"`
}

type MatchJob struct {
	JobMeta
	PaperID string   `json:"paper_id" validate:"required"`
	Terms   []string `json:"terms" validate:"required,min=1"`
	Context string   `json:"context"`
}

var kindQueues = map[string]string{
	KindImport:      ImportQueue,
	KindMerge:       MergeQueue,
	KindValidate:    ValidateQueue,
	KindMine:        MineQueue,
	KindCombination: CombinationQueue,
	KindMatch:       MatchQueue,
}

// QueueFor returns the queue of a job kind.
func QueueFor(kind string) (string, error) {
	q, ok := kindQueues[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return q, nil
}

// NewJob returns an empty payload for kind.
func NewJob(kind string) (Job, error) {
	switch kind {
	case KindImport:
		return &ImportJob{}, nil
	case KindMerge:
		return &MergeJob{}, nil
	case KindValidate:
		return &ValidateJob{}, nil
	case KindMine:
		return &MineJob{}, nil
	case KindCombination:
		return &CombinationJob{}, nil
	case KindMatch:
		return &MatchJob{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// KindOfQueue is the inverse of QueueFor.
func KindOfQueue(queueName string) (string, error) {
	for kind, q := range kindQueues {
		if q == queueName {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: queue %s", ErrUnknownKind, queueName)
}

var validate = validator.New()

// Decode parses and validates the payload of a job of kind.
func Decode(kind string, body []byte) (Job, error) {
	job, err := NewJob(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, job); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidJob, kind, err)
	}
	if err := validate.Struct(job); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidJob, kind, err)
	}
	return job, nil
}

// Enqueue assigns a job id if missing and publishes the job to its queue.
func Enqueue(ch Publisher, kind string, job Job) (string, error) {
	queueName, err := QueueFor(kind)
	if err != nil {
		return "", err
	}
	if job.ID() == "" {
		id, err := gonanoid.New()
		if err != nil {
			return "", err
		}
		job.setID(id)
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	if err := PublishFIFO(ch, queueName, data); err != nil {
		return "", fmt.Errorf("failed to publish %s job: %w", kind, err)
	}
	return job.ID(), nil
}

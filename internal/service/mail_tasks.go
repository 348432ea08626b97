package service

import (
	"bitwise74/career-api/internal/metrics"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const TypeVerificationMail = "mail:verification"

type verificationPayload struct {
	To   string `json:"to"`
	Code string `json:"code"`
}

func NewVerificationTask(to, code string) (*asynq.Task, error) {
	payload, err := json.Marshal(verificationPayload{To: to, Code: code})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeVerificationMail, payload,
		asynq.MaxRetry(5),
		asynq.Timeout(mailTimeout),
		asynq.Retention(time.Hour),
	), nil
}

// AsynqDispatcher pushes mails to redis so any instance running the mail
// server can send them, with retries
type AsynqDispatcher struct {
	client *asynq.Client
}

func NewAsynqDispatcher(rdb redis.UniversalClient) *AsynqDispatcher {
	return &AsynqDispatcher{client: asynq.NewClientFromRedisClient(rdb)}
}

func (a *AsynqDispatcher) DispatchVerification(ctx context.Context, to, code string) error {
	task, err := NewVerificationTask(to, code)
	if err != nil {
		return err
	}

	info, err := a.client.EnqueueContext(ctx, task, asynq.TaskID(uuid.NewString()))
	if err != nil {
		return fmt.Errorf("failed to enqueue mail task, %w", err)
	}

	zap.L().Debug("New mail task enqueued", zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	return nil
}

func (a *AsynqDispatcher) Close() error {
	return a.client.Close()
}

// HandleVerificationTask sends the mail described by the task payload
func HandleVerificationTask(m Mailer) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var p verificationPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("bad payload, %v: %w", err, asynq.SkipRetry)
		}

		if err := m.SendVerificationCode(ctx, p.To, p.Code); err != nil {
			metrics.MailSent.WithLabelValues("failed").Inc()
			return err
		}

		metrics.MailSent.WithLabelValues("sent").Inc()
		return nil
	}
}

// NewMailServer builds the asynq server that consumes mail tasks
func NewMailServer(rdb redis.UniversalClient, m Mailer, workers int) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServerFromRedisClient(rdb, asynq.Config{
		Concurrency: workers,
		Logger:      zap.S(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			zap.L().Error("Mail task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeVerificationMail, HandleVerificationTask(m))

	return srv, mux
}

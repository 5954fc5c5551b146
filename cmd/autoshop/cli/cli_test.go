package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoshop-erp/autoshop/internal/auth"
	"github.com/autoshop-erp/autoshop/internal/rbac"
	"github.com/autoshop-erp/autoshop/internal/shared"
	"github.com/autoshop-erp/autoshop/jobs"
)

type stubCreator struct {
	got   auth.CreateAccountInput
	err   error
	calls int
}

func (s *stubCreator) CreateAccount(ctx context.Context, in auth.CreateAccountInput) (*auth.Account, error) {
	s.calls++
	s.got = in
	if s.err != nil {
		return nil, s.err
	}
	return &auth.Account{ID: 1, Email: auth.NormalizeEmail(in.Email), Name: in.Name, Role: in.Role, IsActive: true}, nil
}

func TestCreateUserDefaultsToAdmin(t *testing.T) {
	creator := &stubCreator{}
	stdout := new(bytes.Buffer)
	code := CreateUserCommand(context.Background(), creator, CreateUserOptions{
		Email: "Owner@Shop.test", Name: " Owner ", Password: "bootstrap-pass", Stdout: stdout, Stderr: new(bytes.Buffer),
	})
	require.Equal(t, ExitOK, code)
	assert.Equal(t, rbac.RoleAdmin, creator.got.Role)
	assert.Equal(t, "Owner", creator.got.Name)
	assert.Contains(t, stdout.String(), "owner@shop.test (Admin) id=1")
}

func TestCreateUserJSONOmitsHash(t *testing.T) {
	stdout := new(bytes.Buffer)
	code := CreateUserCommand(context.Background(), &stubCreator{}, CreateUserOptions{
		Email: "hr@shop.test", Name: "HR", Password: "bootstrap-pass", Role: "HR Manager", JSONOutput: true, Stdout: stdout,
	})
	require.Equal(t, ExitOK, code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &body))
	assert.Equal(t, "HR Manager", body["role"])
	assert.NotContains(t, body, "password_hash")
}

func TestCreateUserFailures(t *testing.T) {
	stderr := new(bytes.Buffer)
	creator := &stubCreator{}
	code := CreateUserCommand(context.Background(), creator, CreateUserOptions{Email: "x@shop.test", Password: "bootstrap-pass", Role: "Owner", Stderr: stderr})
	assert.Equal(t, ExitFailure, code)
	assert.Zero(t, creator.calls)
	assert.Contains(t, stderr.String(), `unknown role "Owner"`)

	creator.err = shared.ErrDuplicateEmail
	code = CreateUserCommand(context.Background(), creator, CreateUserOptions{Email: "x@shop.test", Password: "bootstrap-pass", Stderr: new(bytes.Buffer)})
	assert.Equal(t, ExitDuplicate, code)

	creator.err = errors.New("db down")
	code = CreateUserCommand(context.Background(), creator, CreateUserOptions{Email: "x@shop.test", Password: "bootstrap-pass", Stderr: new(bytes.Buffer)})
	assert.Equal(t, ExitFailure, code)
}

type stubEnqueuer struct {
	tasks []*asynq.Task
}

func (s *stubEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (s *stubEnqueuer) Close() error { return nil }

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func (s stubInspector) ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, s.err
}

func (s stubInspector) Close() error { return nil }

func TestTriggerSupportedJobs(t *testing.T) {
	enq := &stubEnqueuer{}
	c := &JobsCLI{client: enq, inspector: stubInspector{}}

	info, err := c.Trigger(context.Background(), jobs.TaskSessionsCleanup, TriggerArgs{Retention: 2 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskSessionsCleanup, info.Type)

	var cleanup jobs.SessionsCleanupPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &cleanup))
	assert.Equal(t, 2*time.Hour, cleanup.IdempotencyRetention)

	_, err = c.Trigger(context.Background(), jobs.TaskNotificationDispatch, TriggerArgs{})
	assert.Error(t, err)

	_, err = c.Trigger(context.Background(), jobs.TaskNotificationDispatch, TriggerArgs{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Len(t, enq.tasks, 2)

	_, err = c.Trigger(context.Background(), "finance:close", TriggerArgs{})
	assert.Error(t, err)
}

func TestInspectQueue(t *testing.T) {
	c := &JobsCLI{client: &stubEnqueuer{}, inspector: stubInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 3, Retry: 1}}}
	stats, err := c.InspectQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 3, Retry: 1}, stats)

	c.inspector = stubInspector{err: errors.New("redis down")}
	_, err = c.InspectQueue(context.Background())
	assert.Error(t, err)

	var nilCLI *JobsCLI
	_, err = nilCLI.Trigger(context.Background(), jobs.TaskSessionsCleanup, TriggerArgs{})
	assert.Error(t, err)
}

package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/villarosa/admin-api/internal/observability"
)

// RedisDirectory stores identity records as one JSON value per subject plus a
// lowercased email index. It backs deployments where the identity platform is
// self-hosted; the document store remains a fully independent second store.
type RedisDirectory struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisDirectory(client redis.UniversalClient, prefix string) *RedisDirectory {
	if prefix == "" {
		prefix = "identity"
	}
	return &RedisDirectory{client: client, prefix: prefix}
}

func (d *RedisDirectory) userKey(id string) string {
	return fmt.Sprintf("%s:user:%s", d.prefix, id)
}

func (d *RedisDirectory) emailKey(email string) string {
	return fmt.Sprintf("%s:email:%s", d.prefix, strings.ToLower(strings.TrimSpace(email)))
}

func (d *RedisDirectory) membersKey() string {
	return d.prefix + ":members"
}

func (d *RedisDirectory) GetUser(ctx context.Context, subjectID string) (*User, error) {
	raw, err := d.client.Get(ctx, d.userKey(subjectID)).Result()
	if err == redis.Nil {
		observability.RecordIdentityOperation(ctx, "get_user", "not_found")
		return nil, ErrUserNotFound
	}
	if err != nil {
		observability.RecordIdentityOperation(ctx, "get_user", "error")
		return nil, err
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		observability.RecordIdentityOperation(ctx, "get_user", "error")
		return nil, err
	}
	observability.RecordIdentityOperation(ctx, "get_user", "success")
	return &u, nil
}

func (d *RedisDirectory) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	id, err := d.client.Get(ctx, d.emailKey(email)).Result()
	if err == redis.Nil {
		observability.RecordIdentityOperation(ctx, "get_user_by_email", "not_found")
		return nil, ErrUserNotFound
	}
	if err != nil {
		observability.RecordIdentityOperation(ctx, "get_user_by_email", "error")
		return nil, err
	}
	return d.GetUser(ctx, id)
}

func (d *RedisDirectory) CreateUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	pipe := d.client.TxPipeline()
	pipe.Set(ctx, d.userKey(user.SubjectID), raw, 0)
	pipe.SAdd(ctx, d.membersKey(), user.SubjectID)
	if user.Email != "" {
		pipe.Set(ctx, d.emailKey(user.Email), user.SubjectID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RecordIdentityOperation(ctx, "create_user", "error")
		return err
	}
	observability.RecordIdentityOperation(ctx, "create_user", "success")
	return nil
}

func (d *RedisDirectory) UpdateUser(ctx context.Context, subjectID string, patch UserPatch) (*User, error) {
	u, err := d.GetUser(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	oldEmail := u.Email
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.EmailVerified != nil {
		u.EmailVerified = *patch.EmailVerified
	}
	if patch.Disabled != nil {
		u.Disabled = *patch.Disabled
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	pipe := d.client.TxPipeline()
	pipe.Set(ctx, d.userKey(subjectID), raw, 0)
	if patch.Email != nil && !strings.EqualFold(oldEmail, u.Email) {
		if oldEmail != "" {
			pipe.Del(ctx, d.emailKey(oldEmail))
		}
		pipe.Set(ctx, d.emailKey(u.Email), subjectID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RecordIdentityOperation(ctx, "update_user", "error")
		return nil, err
	}
	observability.RecordIdentityOperation(ctx, "update_user", "success")
	return u, nil
}

func (d *RedisDirectory) DeleteUser(ctx context.Context, subjectID string) error {
	u, err := d.GetUser(ctx, subjectID)
	if err != nil {
		return err
	}
	pipe := d.client.TxPipeline()
	pipe.Del(ctx, d.userKey(subjectID))
	pipe.SRem(ctx, d.membersKey(), subjectID)
	if u.Email != "" {
		pipe.Del(ctx, d.emailKey(u.Email))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RecordIdentityOperation(ctx, "delete_user", "error")
		return err
	}
	observability.RecordIdentityOperation(ctx, "delete_user", "success")
	return nil
}

func (d *RedisDirectory) ListUsers(ctx context.Context) ([]User, error) {
	ids, err := d.client.SMembers(ctx, d.membersKey()).Result()
	if err != nil {
		observability.RecordIdentityOperation(ctx, "list_users", "error")
		return nil, err
	}
	users := make([]User, 0, len(ids))
	for _, id := range ids {
		u, err := d.GetUser(ctx, id)
		if err == ErrUserNotFound {
			// Membership set can briefly lag a concurrent delete.
			continue
		}
		if err != nil {
			observability.RecordIdentityOperation(ctx, "list_users", "error")
			return nil, err
		}
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	observability.RecordIdentityOperation(ctx, "list_users", "success")
	return users, nil
}

func (d *RedisDirectory) SetCustomClaims(ctx context.Context, subjectID string, claims map[string]any) error {
	u, err := d.GetUser(ctx, subjectID)
	if err != nil {
		return err
	}
	u.CustomClaims = claims
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := d.client.Set(ctx, d.userKey(subjectID), raw, 0).Err(); err != nil {
		observability.RecordIdentityOperation(ctx, "set_custom_claims", "error")
		return err
	}
	observability.RecordIdentityOperation(ctx, "set_custom_claims", "success")
	return nil
}

package users

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	idstypes "github.com/aws/aws-sdk-go-v2/service/identitystore/types"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	ssotypes "github.com/aws/aws-sdk-go-v2/service/ssoadmin/types"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/awsapi/awsapitest"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
	"github.com/grnet/mcp-aws-orgs/internal/server"
)

// fakeDirectory models a small institution:
//
//	u-alice  "Alice Admin"  direct assignment on 111111111111, owns Physics Lab
//	u-bob    "Bob Member"   member of Physics Lab
//	u-carol  "Carol Root"   no group, no assignment
//	u-dave   (no display name, no emails)
func fakeIdentityStore() *awsapitest.FakeIdentityStore {
	return &awsapitest.FakeIdentityStore{
		ListUsersFunc: func(ctx context.Context, params *identitystore.ListUsersInput) (*identitystore.ListUsersOutput, error) {
			return &identitystore.ListUsersOutput{Users: []idstypes.User{
				{
					UserId: aws.String("u-alice"), UserName: aws.String("alice"),
					DisplayName: aws.String("Alice Admin"),
					Emails:      []idstypes.Email{{Value: aws.String("alice@uni.example"), Primary: true}},
				},
				{
					UserId: aws.String("u-bob"), UserName: aws.String("bob"),
					DisplayName: aws.String("Bob Member"),
					Emails:      []idstypes.Email{{Value: aws.String("bob@uni.example"), Primary: true}},
				},
				{
					UserId: aws.String("u-carol"), UserName: aws.String("carol"),
					DisplayName: aws.String("Carol Root"),
					Emails:      []idstypes.Email{{Value: aws.String("carol@uni.example")}},
				},
				{
					UserId: aws.String("u-dave"), UserName: aws.String("dave"),
				},
			}}, nil
		},
		ListGroupsFunc: func(ctx context.Context, params *identitystore.ListGroupsInput) (*identitystore.ListGroupsOutput, error) {
			return &identitystore.ListGroupsOutput{Groups: []idstypes.Group{
				{
					GroupId: aws.String("g-physics"), DisplayName: aws.String("Physics Lab"),
					Description: aws.String("Physics department"),
				},
				{
					GroupId: aws.String("g-managed"), DisplayName: aws.String("AWSControlTowerAdmins"),
					Description: aws.String("Managed by Control Tower"),
				},
			}}, nil
		},
		ListGroupMembershipsFunc: func(ctx context.Context, params *identitystore.ListGroupMembershipsInput) (*identitystore.ListGroupMembershipsOutput, error) {
			if aws.ToString(params.GroupId) != "g-physics" {
				return &identitystore.ListGroupMembershipsOutput{}, nil
			}
			return &identitystore.ListGroupMembershipsOutput{GroupMemberships: []idstypes.GroupMembership{
				{MemberId: &idstypes.MemberIdMemberUserId{Value: "u-bob"}},
			}}, nil
		},
	}
}

func fakeSSOAdmin() *awsapitest.FakeSSOAdmin {
	return &awsapitest.FakeSSOAdmin{
		ListInstancesFunc: func(ctx context.Context, params *ssoadmin.ListInstancesInput) (*ssoadmin.ListInstancesOutput, error) {
			return &ssoadmin.ListInstancesOutput{Instances: []ssotypes.InstanceMetadata{
				{IdentityStoreId: aws.String("d-test"), InstanceArn: aws.String("arn:aws:sso:::instance/ssoins-test")},
			}}, nil
		},
		ListPermissionSetsFunc: func(ctx context.Context, params *ssoadmin.ListPermissionSetsInput) (*ssoadmin.ListPermissionSetsOutput, error) {
			return &ssoadmin.ListPermissionSetsOutput{PermissionSets: []string{"ps-admin", "ps-readonly"}}, nil
		},
		DescribePermissionSetFunc: func(ctx context.Context, params *ssoadmin.DescribePermissionSetInput) (*ssoadmin.DescribePermissionSetOutput, error) {
			name := "ReadOnlyAccess"
			if aws.ToString(params.PermissionSetArn) == "ps-admin" {
				name = "AWSAdministratorAccess"
			}
			return &ssoadmin.DescribePermissionSetOutput{
				PermissionSet: &ssotypes.PermissionSet{Name: aws.String(name)},
			}, nil
		},
		ListAccountsForProvisionedPermissionSetFunc: func(ctx context.Context, params *ssoadmin.ListAccountsForProvisionedPermissionSetInput) (*ssoadmin.ListAccountsForProvisionedPermissionSetOutput, error) {
			if aws.ToString(params.PermissionSetArn) != "ps-admin" {
				return &ssoadmin.ListAccountsForProvisionedPermissionSetOutput{}, nil
			}
			return &ssoadmin.ListAccountsForProvisionedPermissionSetOutput{AccountIds: []string{"111111111111"}}, nil
		},
		ListAccountAssignmentsFunc: func(ctx context.Context, params *ssoadmin.ListAccountAssignmentsInput) (*ssoadmin.ListAccountAssignmentsOutput, error) {
			return &ssoadmin.ListAccountAssignmentsOutput{AccountAssignments: []ssotypes.AccountAssignment{
				{PrincipalType: ssotypes.PrincipalTypeGroup, PrincipalId: aws.String("g-physics"), AccountId: params.AccountId},
				{PrincipalType: ssotypes.PrincipalTypeUser, PrincipalId: aws.String("u-alice"), AccountId: params.AccountId},
			}}, nil
		},
	}
}

func usersTestContext(t *testing.T, opts ...server.Option) *server.ServerContext {
	t.Helper()
	return awsapitest.NewServerContext(t, map[string]*awsapi.Bundle{
		"sandbox": {
			Institution:   "sandbox",
			SSOAdmin:      fakeSSOAdmin(),
			IdentityStore: fakeIdentityStore(),
			SSORegion:     "eu-central-1",
		},
	}, opts...)
}

func request(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestGetUsersHierarchy(t *testing.T) {
	sc := usersTestContext(t)

	data, err := handleGetUsers(context.Background(), request(map[string]any{
		"institution": "sandbox",
	}), sc)
	require.NoError(t, err)
	payload := data.(map[string]any)

	assert.Equal(t, "d-test", payload["sso_instance_id"])

	hierarchy := payload["users"].(map[string]any)
	rootUsers := hierarchy["root_users"].([]map[string]any)
	require.Len(t, rootUsers, 2, "only users outside every group are root users")
	assert.Equal(t, "Carol Root", rootUsers[0]["display_name"])
	assert.Equal(t, "carol@uni.example", rootUsers[0]["email"])
	assert.Equal(t, "Not_Verified", rootUsers[0]["email_status"], "non-primary addresses are unverified")
	assert.Equal(t, "dave", rootUsers[1]["display_name"], "username is the display name fallback")
	assert.Equal(t, "", rootUsers[1]["email"])

	groups := hierarchy["groups"].([]map[string]any)
	require.Len(t, groups, 1, "AWS managed groups are skipped")
	group := groups[0]
	assert.Equal(t, "Physics Lab", group["group_name"])
	assert.Equal(t, []string{"111111111111"}, group["account_ids"])

	owners := group["owners"].([]map[string]any)
	require.Len(t, owners, 1, "direct assignment overlapping the group accounts makes an owner")
	assert.Equal(t, "u-alice", owners[0]["user_id"])
	assert.Equal(t, true, owners[0]["is_owner"])
	assert.Equal(t, "Verified", owners[0]["email_status"])

	members := group["members"].([]map[string]any)
	require.Len(t, members, 1)
	assert.Equal(t, "u-bob", members[0]["user_id"])
	assert.Equal(t, false, members[0]["is_owner"])

	summary := payload["summary"].(map[string]any)
	assert.Equal(t, 4, summary["total_users"])
	assert.Equal(t, 1, summary["total_groups"])
	assert.Equal(t, 2, summary["total_assignments"])
	assert.Equal(t, false, summary["role_filter_applied"])
}

func TestGetUsersRoleFilter(t *testing.T) {
	sc := usersTestContext(t)

	data, err := handleGetUsers(context.Background(), request(map[string]any{
		"institution": "sandbox",
		"role_filter": "111111",
	}), sc)
	require.NoError(t, err)
	payload := data.(map[string]any)

	hierarchy := payload["users"].(map[string]any)
	assert.Empty(t, hierarchy["root_users"], "root users have no matching assignments")
	assert.Len(t, hierarchy["groups"].([]map[string]any), 1)

	data, err = handleGetUsers(context.Background(), request(map[string]any{
		"institution": "sandbox",
		"role_filter": "no-such-account",
	}), sc)
	require.NoError(t, err)
	hierarchy = data.(map[string]any)["users"].(map[string]any)
	assert.Empty(t, hierarchy["root_users"])
	assert.Empty(t, hierarchy["groups"])
}

func TestGetUsersWithoutGroupsOrAssignments(t *testing.T) {
	sc := usersTestContext(t)

	data, err := handleGetUsers(context.Background(), request(map[string]any{
		"institution":         "sandbox",
		"include_groups":      false,
		"include_assignments": false,
	}), sc)
	require.NoError(t, err)
	payload := data.(map[string]any)

	hierarchy := payload["users"].(map[string]any)
	assert.Len(t, hierarchy["root_users"].([]map[string]any), 4, "every user is a root user without group data")
	assert.Empty(t, hierarchy["groups"])

	summary := payload["summary"].(map[string]any)
	assert.Equal(t, 0, summary["total_assignments"])
	assert.Equal(t, false, summary["groups_included"])
	assert.Equal(t, false, summary["assignments_included"])
}

func TestGetUsersNoIdentityCenterInstance(t *testing.T) {
	sc := awsapitest.NewServerContext(t, map[string]*awsapi.Bundle{
		"sandbox": {
			Institution:   "sandbox",
			SSOAdmin:      &awsapitest.FakeSSOAdmin{},
			IdentityStore: fakeIdentityStore(),
		},
	})

	_, err := handleGetUsers(context.Background(), request(map[string]any{
		"institution": "sandbox",
	}), sc)
	require.Error(t, err)

	var be *envelope.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, envelope.KindAWSAPI, be.Kind)
	assert.Contains(t, be.Message, "no Identity Center instance")
}

// fakeIdentityOps records the identity operations issued against it.
type fakeIdentityOps struct {
	verifyStoreID string
	verifyUserID  string
	resetMode     string
	resetUserID   string
}

func (f *fakeIdentityOps) VerifyEmail(ctx context.Context, identityStoreID, userID string) (map[string]any, error) {
	f.verifyStoreID = identityStoreID
	f.verifyUserID = userID
	return map[string]any{"RequestId": "req-1"}, nil
}

func (f *fakeIdentityOps) UpdatePassword(ctx context.Context, identityStoreID, userID, mode string) (map[string]any, error) {
	f.resetUserID = userID
	f.resetMode = mode
	return map[string]any{"RequestId": "req-2"}, nil
}

func TestVerifyEmailResolvesIdentifier(t *testing.T) {
	ops := &fakeIdentityOps{}
	sc := usersTestContext(t, server.WithIdentityOps(
		func(accessKeyID, secretAccessKey, region string) (awsapi.IdentityOps, error) {
			return ops, nil
		}))

	data, err := handleVerifyEmail(context.Background(), request(map[string]any{
		"institution":     "sandbox",
		"user_identifier": "alice@uni",
	}), sc)
	require.NoError(t, err)
	payload := data.(map[string]any)

	assert.Equal(t, "u-alice", payload["user_id"])
	assert.Equal(t, "verify_email", payload["operation"])
	assert.Equal(t, map[string]any{"RequestId": "req-1"}, payload["aws_response"])
	assert.Equal(t, "u-alice", ops.verifyUserID)
	assert.Equal(t, "d-test", ops.verifyStoreID)

	userInfo := payload["user_info"].(map[string]any)
	assert.Equal(t, "Alice Admin", userInfo["display_name"])
}

func TestVerifyEmailUnknownIdentifier(t *testing.T) {
	sc := usersTestContext(t, server.WithIdentityOps(
		func(accessKeyID, secretAccessKey, region string) (awsapi.IdentityOps, error) {
			return &fakeIdentityOps{}, nil
		}))

	_, err := handleVerifyEmail(context.Background(), request(map[string]any{
		"institution":     "sandbox",
		"user_identifier": "nobody@nowhere",
	}), sc)
	require.Error(t, err)

	var be *envelope.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, envelope.KindInvalidArgument, be.Kind)
	assert.Contains(t, be.Message, "not found")
}

func TestVerifyEmailRequiresTarget(t *testing.T) {
	sc := usersTestContext(t, server.WithIdentityOps(
		func(accessKeyID, secretAccessKey, region string) (awsapi.IdentityOps, error) {
			return &fakeIdentityOps{}, nil
		}))

	_, err := handleVerifyEmail(context.Background(), request(map[string]any{
		"institution": "sandbox",
	}), sc)
	require.Error(t, err)

	var be *envelope.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, envelope.KindInvalidArgument, be.Kind)
}

func TestResetPasswordDefaultsToEmailMode(t *testing.T) {
	ops := &fakeIdentityOps{}
	sc := usersTestContext(t, server.WithIdentityOps(
		func(accessKeyID, secretAccessKey, region string) (awsapi.IdentityOps, error) {
			return ops, nil
		}))

	data, err := handleResetPassword(context.Background(), request(map[string]any{
		"institution": "sandbox",
		"user_id":     "u-bob",
	}), sc)
	require.NoError(t, err)
	payload := data.(map[string]any)

	assert.Equal(t, "EMAIL", payload["mode"])
	assert.Equal(t, "EMAIL", ops.resetMode)
	assert.Equal(t, "u-bob", ops.resetUserID)
	assert.Nil(t, payload["user_info"], "explicit user_id skips the directory search")
}

func TestResetPasswordRejectsUnknownMode(t *testing.T) {
	sc := usersTestContext(t, server.WithIdentityOps(
		func(accessKeyID, secretAccessKey, region string) (awsapi.IdentityOps, error) {
			return &fakeIdentityOps{}, nil
		}))

	_, err := handleResetPassword(context.Background(), request(map[string]any{
		"institution": "sandbox",
		"user_id":     "u-bob",
		"mode":        "CARRIER_PIGEON",
	}), sc)
	require.Error(t, err)

	var be *envelope.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, envelope.KindInvalidArgument, be.Kind)
}

func TestIdentityOpsUnavailableWithoutFactory(t *testing.T) {
	sc := usersTestContext(t)

	_, err := handleVerifyEmail(context.Background(), request(map[string]any{
		"institution": "sandbox",
		"user_id":     "u-bob",
	}), sc)
	require.Error(t, err)

	var be *envelope.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, envelope.KindCapabilityUnavailable, be.Kind)
}

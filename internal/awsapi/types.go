// Package awsapi defines the narrow AWS sub-service surfaces the broker
// depends on, and builds per-institution client bundles over
// aws-sdk-go-v2. Tool handlers only ever see the interfaces, so tests can
// substitute fakes without touching the SDK.
package awsapi

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// OrganizationsAPI is the AWS Organizations surface used by the broker.
// *organizations.Client satisfies it.
type OrganizationsAPI interface {
	DescribeOrganization(ctx context.Context, params *organizations.DescribeOrganizationInput, optFns ...func(*organizations.Options)) (*organizations.DescribeOrganizationOutput, error)
	DescribeAccount(ctx context.Context, params *organizations.DescribeAccountInput, optFns ...func(*organizations.Options)) (*organizations.DescribeAccountOutput, error)
	ListAccounts(ctx context.Context, params *organizations.ListAccountsInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error)
	ListRoots(ctx context.Context, params *organizations.ListRootsInput, optFns ...func(*organizations.Options)) (*organizations.ListRootsOutput, error)
	ListOrganizationalUnitsForParent(ctx context.Context, params *organizations.ListOrganizationalUnitsForParentInput, optFns ...func(*organizations.Options)) (*organizations.ListOrganizationalUnitsForParentOutput, error)
	ListAccountsForParent(ctx context.Context, params *organizations.ListAccountsForParentInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsForParentOutput, error)
	ListParents(ctx context.Context, params *organizations.ListParentsInput, optFns ...func(*organizations.Options)) (*organizations.ListParentsOutput, error)
	ListTagsForResource(ctx context.Context, params *organizations.ListTagsForResourceInput, optFns ...func(*organizations.Options)) (*organizations.ListTagsForResourceOutput, error)
}

// SSOAdminAPI is the IAM Identity Center admin surface used by get_users.
type SSOAdminAPI interface {
	ListInstances(ctx context.Context, params *ssoadmin.ListInstancesInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.ListInstancesOutput, error)
	ListPermissionSets(ctx context.Context, params *ssoadmin.ListPermissionSetsInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.ListPermissionSetsOutput, error)
	DescribePermissionSet(ctx context.Context, params *ssoadmin.DescribePermissionSetInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.DescribePermissionSetOutput, error)
	ListAccountsForProvisionedPermissionSet(ctx context.Context, params *ssoadmin.ListAccountsForProvisionedPermissionSetInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.ListAccountsForProvisionedPermissionSetOutput, error)
	ListAccountAssignments(ctx context.Context, params *ssoadmin.ListAccountAssignmentsInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.ListAccountAssignmentsOutput, error)
}

// IdentityStoreAPI is the Identity Store directory surface.
type IdentityStoreAPI interface {
	ListUsers(ctx context.Context, params *identitystore.ListUsersInput, optFns ...func(*identitystore.Options)) (*identitystore.ListUsersOutput, error)
	ListGroups(ctx context.Context, params *identitystore.ListGroupsInput, optFns ...func(*identitystore.Options)) (*identitystore.ListGroupsOutput, error)
	ListGroupMemberships(ctx context.Context, params *identitystore.ListGroupMembershipsInput, optFns ...func(*identitystore.Options)) (*identitystore.ListGroupMembershipsOutput, error)
}

// CostExplorerAPI is the Cost Explorer surface used by check_budget.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// TaggingAPI is the Resource Groups Tagging surface used by get_tags.
type TaggingAPI interface {
	GetResources(ctx context.Context, params *resourcegroupstaggingapi.GetResourcesInput, optFns ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.GetResourcesOutput, error)
}

// STSAPI is used once per bundle construction to probe credential validity.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Bundle is the set of authenticated sub-service handles for exactly one
// institution. Bundles are immutable after construction and safe for
// concurrent use; credential rotation replaces the bundle, it never patches
// one in place.
type Bundle struct {
	Institution string

	// CallerARN is the identity the credentials resolved to during the
	// construction probe. Diagnostic only.
	CallerARN string

	Organizations OrganizationsAPI
	SSOAdmin      SSOAdminAPI
	IdentityStore IdentityStoreAPI
	CostExplorer  CostExplorerAPI
	Tagging       TaggingAPI

	// Region is the effective region for Organizations/Cost Explorer/
	// tagging calls; SSORegion for Identity Center calls.
	Region    string
	SSORegion string
}

// IdentityOps is the optional identity-operations surface behind the
// capability gate: email verification and password reset are not part of
// the public SDK and are only available when the optional module is
// compiled in.
type IdentityOps interface {
	VerifyEmail(ctx context.Context, identityStoreID, userID string) (map[string]any, error)
	UpdatePassword(ctx context.Context, identityStoreID, userID, mode string) (map[string]any, error)
}

// IdentityOpsFactory builds an IdentityOps client for one institution's
// credentials. Registered by the optional module at init time.
type IdentityOpsFactory func(accessKeyID, secretAccessKey, region string) (IdentityOps, error)

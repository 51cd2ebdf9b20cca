// Package awsapitest provides function-field fakes for the awsapi
// interfaces, shared by tool handler tests.
package awsapitest

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
)

// FakeOrganizations implements awsapi.OrganizationsAPI. Unset functions
// return empty outputs so tests only wire what they assert on.
type FakeOrganizations struct {
	DescribeOrganizationFunc             func(ctx context.Context, params *organizations.DescribeOrganizationInput) (*organizations.DescribeOrganizationOutput, error)
	DescribeAccountFunc                  func(ctx context.Context, params *organizations.DescribeAccountInput) (*organizations.DescribeAccountOutput, error)
	ListAccountsFunc                     func(ctx context.Context, params *organizations.ListAccountsInput) (*organizations.ListAccountsOutput, error)
	ListRootsFunc                        func(ctx context.Context, params *organizations.ListRootsInput) (*organizations.ListRootsOutput, error)
	ListOrganizationalUnitsForParentFunc func(ctx context.Context, params *organizations.ListOrganizationalUnitsForParentInput) (*organizations.ListOrganizationalUnitsForParentOutput, error)
	ListAccountsForParentFunc            func(ctx context.Context, params *organizations.ListAccountsForParentInput) (*organizations.ListAccountsForParentOutput, error)
	ListParentsFunc                      func(ctx context.Context, params *organizations.ListParentsInput) (*organizations.ListParentsOutput, error)
	ListTagsForResourceFunc              func(ctx context.Context, params *organizations.ListTagsForResourceInput) (*organizations.ListTagsForResourceOutput, error)
}

var _ awsapi.OrganizationsAPI = (*FakeOrganizations)(nil)

func (f *FakeOrganizations) DescribeOrganization(ctx context.Context, params *organizations.DescribeOrganizationInput, _ ...func(*organizations.Options)) (*organizations.DescribeOrganizationOutput, error) {
	if f.DescribeOrganizationFunc != nil {
		return f.DescribeOrganizationFunc(ctx, params)
	}
	return &organizations.DescribeOrganizationOutput{}, nil
}

func (f *FakeOrganizations) DescribeAccount(ctx context.Context, params *organizations.DescribeAccountInput, _ ...func(*organizations.Options)) (*organizations.DescribeAccountOutput, error) {
	if f.DescribeAccountFunc != nil {
		return f.DescribeAccountFunc(ctx, params)
	}
	return &organizations.DescribeAccountOutput{}, nil
}

func (f *FakeOrganizations) ListAccounts(ctx context.Context, params *organizations.ListAccountsInput, _ ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error) {
	if f.ListAccountsFunc != nil {
		return f.ListAccountsFunc(ctx, params)
	}
	return &organizations.ListAccountsOutput{}, nil
}

func (f *FakeOrganizations) ListRoots(ctx context.Context, params *organizations.ListRootsInput, _ ...func(*organizations.Options)) (*organizations.ListRootsOutput, error) {
	if f.ListRootsFunc != nil {
		return f.ListRootsFunc(ctx, params)
	}
	return &organizations.ListRootsOutput{}, nil
}

func (f *FakeOrganizations) ListOrganizationalUnitsForParent(ctx context.Context, params *organizations.ListOrganizationalUnitsForParentInput, _ ...func(*organizations.Options)) (*organizations.ListOrganizationalUnitsForParentOutput, error) {
	if f.ListOrganizationalUnitsForParentFunc != nil {
		return f.ListOrganizationalUnitsForParentFunc(ctx, params)
	}
	return &organizations.ListOrganizationalUnitsForParentOutput{}, nil
}

func (f *FakeOrganizations) ListAccountsForParent(ctx context.Context, params *organizations.ListAccountsForParentInput, _ ...func(*organizations.Options)) (*organizations.ListAccountsForParentOutput, error) {
	if f.ListAccountsForParentFunc != nil {
		return f.ListAccountsForParentFunc(ctx, params)
	}
	return &organizations.ListAccountsForParentOutput{}, nil
}

func (f *FakeOrganizations) ListParents(ctx context.Context, params *organizations.ListParentsInput, _ ...func(*organizations.Options)) (*organizations.ListParentsOutput, error) {
	if f.ListParentsFunc != nil {
		return f.ListParentsFunc(ctx, params)
	}
	return &organizations.ListParentsOutput{}, nil
}

func (f *FakeOrganizations) ListTagsForResource(ctx context.Context, params *organizations.ListTagsForResourceInput, _ ...func(*organizations.Options)) (*organizations.ListTagsForResourceOutput, error) {
	if f.ListTagsForResourceFunc != nil {
		return f.ListTagsForResourceFunc(ctx, params)
	}
	return &organizations.ListTagsForResourceOutput{}, nil
}

// FakeSSOAdmin implements awsapi.SSOAdminAPI.
type FakeSSOAdmin struct {
	ListInstancesFunc                           func(ctx context.Context, params *ssoadmin.ListInstancesInput) (*ssoadmin.ListInstancesOutput, error)
	ListPermissionSetsFunc                      func(ctx context.Context, params *ssoadmin.ListPermissionSetsInput) (*ssoadmin.ListPermissionSetsOutput, error)
	DescribePermissionSetFunc                   func(ctx context.Context, params *ssoadmin.DescribePermissionSetInput) (*ssoadmin.DescribePermissionSetOutput, error)
	ListAccountsForProvisionedPermissionSetFunc func(ctx context.Context, params *ssoadmin.ListAccountsForProvisionedPermissionSetInput) (*ssoadmin.ListAccountsForProvisionedPermissionSetOutput, error)
	ListAccountAssignmentsFunc                  func(ctx context.Context, params *ssoadmin.ListAccountAssignmentsInput) (*ssoadmin.ListAccountAssignmentsOutput, error)
}

var _ awsapi.SSOAdminAPI = (*FakeSSOAdmin)(nil)

func (f *FakeSSOAdmin) ListInstances(ctx context.Context, params *ssoadmin.ListInstancesInput, _ ...func(*ssoadmin.Options)) (*ssoadmin.ListInstancesOutput, error) {
	if f.ListInstancesFunc != nil {
		return f.ListInstancesFunc(ctx, params)
	}
	return &ssoadmin.ListInstancesOutput{}, nil
}

func (f *FakeSSOAdmin) ListPermissionSets(ctx context.Context, params *ssoadmin.ListPermissionSetsInput, _ ...func(*ssoadmin.Options)) (*ssoadmin.ListPermissionSetsOutput, error) {
	if f.ListPermissionSetsFunc != nil {
		return f.ListPermissionSetsFunc(ctx, params)
	}
	return &ssoadmin.ListPermissionSetsOutput{}, nil
}

func (f *FakeSSOAdmin) DescribePermissionSet(ctx context.Context, params *ssoadmin.DescribePermissionSetInput, _ ...func(*ssoadmin.Options)) (*ssoadmin.DescribePermissionSetOutput, error) {
	if f.DescribePermissionSetFunc != nil {
		return f.DescribePermissionSetFunc(ctx, params)
	}
	return &ssoadmin.DescribePermissionSetOutput{}, nil
}

func (f *FakeSSOAdmin) ListAccountsForProvisionedPermissionSet(ctx context.Context, params *ssoadmin.ListAccountsForProvisionedPermissionSetInput, _ ...func(*ssoadmin.Options)) (*ssoadmin.ListAccountsForProvisionedPermissionSetOutput, error) {
	if f.ListAccountsForProvisionedPermissionSetFunc != nil {
		return f.ListAccountsForProvisionedPermissionSetFunc(ctx, params)
	}
	return &ssoadmin.ListAccountsForProvisionedPermissionSetOutput{}, nil
}

func (f *FakeSSOAdmin) ListAccountAssignments(ctx context.Context, params *ssoadmin.ListAccountAssignmentsInput, _ ...func(*ssoadmin.Options)) (*ssoadmin.ListAccountAssignmentsOutput, error) {
	if f.ListAccountAssignmentsFunc != nil {
		return f.ListAccountAssignmentsFunc(ctx, params)
	}
	return &ssoadmin.ListAccountAssignmentsOutput{}, nil
}

// FakeIdentityStore implements awsapi.IdentityStoreAPI.
type FakeIdentityStore struct {
	ListUsersFunc            func(ctx context.Context, params *identitystore.ListUsersInput) (*identitystore.ListUsersOutput, error)
	ListGroupsFunc           func(ctx context.Context, params *identitystore.ListGroupsInput) (*identitystore.ListGroupsOutput, error)
	ListGroupMembershipsFunc func(ctx context.Context, params *identitystore.ListGroupMembershipsInput) (*identitystore.ListGroupMembershipsOutput, error)
}

var _ awsapi.IdentityStoreAPI = (*FakeIdentityStore)(nil)

func (f *FakeIdentityStore) ListUsers(ctx context.Context, params *identitystore.ListUsersInput, _ ...func(*identitystore.Options)) (*identitystore.ListUsersOutput, error) {
	if f.ListUsersFunc != nil {
		return f.ListUsersFunc(ctx, params)
	}
	return &identitystore.ListUsersOutput{}, nil
}

func (f *FakeIdentityStore) ListGroups(ctx context.Context, params *identitystore.ListGroupsInput, _ ...func(*identitystore.Options)) (*identitystore.ListGroupsOutput, error) {
	if f.ListGroupsFunc != nil {
		return f.ListGroupsFunc(ctx, params)
	}
	return &identitystore.ListGroupsOutput{}, nil
}

func (f *FakeIdentityStore) ListGroupMemberships(ctx context.Context, params *identitystore.ListGroupMembershipsInput, _ ...func(*identitystore.Options)) (*identitystore.ListGroupMembershipsOutput, error) {
	if f.ListGroupMembershipsFunc != nil {
		return f.ListGroupMembershipsFunc(ctx, params)
	}
	return &identitystore.ListGroupMembershipsOutput{}, nil
}

// FakeCostExplorer implements awsapi.CostExplorerAPI.
type FakeCostExplorer struct {
	GetCostAndUsageFunc func(ctx context.Context, params *costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error)
}

var _ awsapi.CostExplorerAPI = (*FakeCostExplorer)(nil)

func (f *FakeCostExplorer) GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, _ ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	if f.GetCostAndUsageFunc != nil {
		return f.GetCostAndUsageFunc(ctx, params)
	}
	return &costexplorer.GetCostAndUsageOutput{}, nil
}

// FakeTagging implements awsapi.TaggingAPI.
type FakeTagging struct {
	GetResourcesFunc func(ctx context.Context, params *resourcegroupstaggingapi.GetResourcesInput) (*resourcegroupstaggingapi.GetResourcesOutput, error)
}

var _ awsapi.TaggingAPI = (*FakeTagging)(nil)

func (f *FakeTagging) GetResources(ctx context.Context, params *resourcegroupstaggingapi.GetResourcesInput, _ ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.GetResourcesOutput, error) {
	if f.GetResourcesFunc != nil {
		return f.GetResourcesFunc(ctx, params)
	}
	return &resourcegroupstaggingapi.GetResourcesOutput{}, nil
}

package users

import (
	"context"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	idstypes "github.com/aws/aws-sdk-go-v2/service/identitystore/types"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	ssotypes "github.com/aws/aws-sdk-go-v2/service/ssoadmin/types"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
	"github.com/grnet/mcp-aws-orgs/internal/logging"
	"github.com/grnet/mcp-aws-orgs/internal/server"
)

// managedPermissionSets are the only permission sets the broker reports
// assignments for. Everything else in the Identity Center instance is
// operator plumbing, not institution access.
var managedPermissionSets = map[string]bool{
	"AWSAdministratorAccess": true,
	"OrganizationAdmin":      true,
	"StudentAccess":          true,
}

type userEmail struct {
	Value   string
	Primary bool
	Status  string
}

type directoryUser struct {
	ID          string
	UserName    string
	DisplayName string
	Emails      []userEmail
	Active      bool
}

// primaryEmail prefers the primary address and falls back to the first one.
func (u directoryUser) primaryEmail() (string, string) {
	for _, e := range u.Emails {
		if e.Primary {
			return e.Value, e.Status
		}
	}
	if len(u.Emails) > 0 {
		return u.Emails[0].Value, u.Emails[0].Status
	}
	return "", "Not_Verified"
}

type directoryGroup struct {
	ID          string
	DisplayName string
	Description string
	Members     []string
}

// assignmentSet maps principal IDs to the account IDs their managed
// permission sets are provisioned on.
type assignmentSet struct {
	User  map[string][]string
	Group map[string][]string
}

// ssoInstance resolves the institution's Identity Center instance. Exactly
// one instance per institution is assumed, matching how Identity Center is
// provisioned.
func ssoInstance(ctx context.Context, api awsapi.SSOAdminAPI, institution string) (identityStoreID, instanceArn string, err error) {
	out, err := api.ListInstances(ctx, &ssoadmin.ListInstancesInput{})
	if err != nil {
		return "", "", err
	}
	if len(out.Instances) == 0 {
		return "", "", envelope.Errorf(envelope.KindAWSAPI,
			"no Identity Center instance found for institution %q", institution)
	}
	instance := out.Instances[0]
	return aws.ToString(instance.IdentityStoreId), aws.ToString(instance.InstanceArn), nil
}

// fetchUsers lists every user in the identity store. The email status
// mirrors what Identity Center exposes: primary addresses are the verified
// ones.
func fetchUsers(ctx context.Context, api awsapi.IdentityStoreAPI, identityStoreID string) (map[string]directoryUser, error) {
	users := make(map[string]directoryUser)
	var nextToken *string
	for {
		out, err := api.ListUsers(ctx, &identitystore.ListUsersInput{
			IdentityStoreId: aws.String(identityStoreID),
			NextToken:       nextToken,
		})
		if err != nil {
			return nil, err
		}
		for _, u := range out.Users {
			id := aws.ToString(u.UserId)
			displayName := aws.ToString(u.DisplayName)
			if displayName == "" {
				displayName = aws.ToString(u.UserName)
			}
			if displayName == "" {
				displayName = "Unknown"
			}
			emails := make([]userEmail, 0, len(u.Emails))
			for _, e := range u.Emails {
				status := "Not_Verified"
				if e.Primary {
					status = "Verified"
				}
				emails = append(emails, userEmail{
					Value:   aws.ToString(e.Value),
					Primary: e.Primary,
					Status:  status,
				})
			}
			users[id] = directoryUser{
				ID:          id,
				UserName:    aws.ToString(u.UserName),
				DisplayName: displayName,
				Emails:      emails,
				Active:      true,
			}
		}
		if out.NextToken == nil {
			return users, nil
		}
		nextToken = out.NextToken
	}
}

// fetchGroups lists institution groups and their memberships. AWS managed
// groups carry an AWS-prefixed display name plus a description and are
// skipped. A membership listing failure degrades that group to an empty
// member list.
func fetchGroups(ctx context.Context, sc *server.ServerContext, api awsapi.IdentityStoreAPI, identityStoreID string) (map[string]directoryGroup, error) {
	groups := make(map[string]directoryGroup)
	var nextToken *string
	for {
		out, err := api.ListGroups(ctx, &identitystore.ListGroupsInput{
			IdentityStoreId: aws.String(identityStoreID),
			NextToken:       nextToken,
		})
		if err != nil {
			return nil, err
		}
		for _, g := range out.Groups {
			displayName := aws.ToString(g.DisplayName)
			description := aws.ToString(g.Description)
			if strings.HasPrefix(displayName, "AWS") && description != "" {
				continue
			}
			id := aws.ToString(g.GroupId)
			members, err := fetchGroupMembers(ctx, api, identityStoreID, id)
			if err != nil {
				sc.Logger().Warn("could not list group memberships",
					"group_id", id, logging.KeyError, err.Error())
				members = nil
			}
			groups[id] = directoryGroup{
				ID:          id,
				DisplayName: displayName,
				Description: description,
				Members:     members,
			}
		}
		if out.NextToken == nil {
			return groups, nil
		}
		nextToken = out.NextToken
	}
}

func fetchGroupMembers(ctx context.Context, api awsapi.IdentityStoreAPI, identityStoreID, groupID string) ([]string, error) {
	var members []string
	var nextToken *string
	for {
		out, err := api.ListGroupMemberships(ctx, &identitystore.ListGroupMembershipsInput{
			IdentityStoreId: aws.String(identityStoreID),
			GroupId:         aws.String(groupID),
			NextToken:       nextToken,
		})
		if err != nil {
			return nil, err
		}
		for _, m := range out.GroupMemberships {
			if userID, ok := m.MemberId.(*idstypes.MemberIdMemberUserId); ok {
				members = append(members, userID.Value)
			}
		}
		if out.NextToken == nil {
			return members, nil
		}
		nextToken = out.NextToken
	}
}

// fetchAssignments walks the managed permission sets and records which
// accounts each user or group principal is assigned on. Failures below one
// permission set degrade that set, not the whole listing.
func fetchAssignments(ctx context.Context, sc *server.ServerContext, api awsapi.SSOAdminAPI, instanceArn string) assignmentSet {
	assignments := assignmentSet{
		User:  make(map[string][]string),
		Group: make(map[string][]string),
	}

	permSets, err := listPermissionSets(ctx, api, instanceArn)
	if err != nil {
		sc.Logger().Warn("could not list permission sets", logging.KeyError, err.Error())
		return assignments
	}

	for _, permSetArn := range permSets {
		details, err := api.DescribePermissionSet(ctx, &ssoadmin.DescribePermissionSetInput{
			InstanceArn:      aws.String(instanceArn),
			PermissionSetArn: aws.String(permSetArn),
		})
		if err != nil || details.PermissionSet == nil {
			sc.Logger().Warn("could not describe permission set",
				"permission_set_arn", permSetArn, logging.KeyError, errText(err))
			continue
		}
		if !managedPermissionSets[aws.ToString(details.PermissionSet.Name)] {
			continue
		}

		accountIDs, err := listProvisionedAccounts(ctx, api, instanceArn, permSetArn)
		if err != nil {
			sc.Logger().Warn("could not list provisioned accounts",
				"permission_set_arn", permSetArn, logging.KeyError, err.Error())
			continue
		}

		for _, accountID := range accountIDs {
			if err := collectAccountAssignments(ctx, api, instanceArn, permSetArn, accountID, &assignments); err != nil {
				sc.Logger().Warn("could not list account assignments",
					"account_id", accountID, logging.KeyError, err.Error())
			}
		}
	}
	return assignments
}

func listPermissionSets(ctx context.Context, api awsapi.SSOAdminAPI, instanceArn string) ([]string, error) {
	var arns []string
	var nextToken *string
	for {
		out, err := api.ListPermissionSets(ctx, &ssoadmin.ListPermissionSetsInput{
			InstanceArn: aws.String(instanceArn),
			NextToken:   nextToken,
		})
		if err != nil {
			return nil, err
		}
		arns = append(arns, out.PermissionSets...)
		if out.NextToken == nil {
			return arns, nil
		}
		nextToken = out.NextToken
	}
}

func listProvisionedAccounts(ctx context.Context, api awsapi.SSOAdminAPI, instanceArn, permSetArn string) ([]string, error) {
	var ids []string
	var nextToken *string
	for {
		out, err := api.ListAccountsForProvisionedPermissionSet(ctx, &ssoadmin.ListAccountsForProvisionedPermissionSetInput{
			InstanceArn:      aws.String(instanceArn),
			PermissionSetArn: aws.String(permSetArn),
			NextToken:        nextToken,
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, out.AccountIds...)
		if out.NextToken == nil {
			return ids, nil
		}
		nextToken = out.NextToken
	}
}

func collectAccountAssignments(ctx context.Context, api awsapi.SSOAdminAPI, instanceArn, permSetArn, accountID string, assignments *assignmentSet) error {
	var nextToken *string
	for {
		out, err := api.ListAccountAssignments(ctx, &ssoadmin.ListAccountAssignmentsInput{
			InstanceArn:      aws.String(instanceArn),
			PermissionSetArn: aws.String(permSetArn),
			AccountId:        aws.String(accountID),
			NextToken:        nextToken,
		})
		if err != nil {
			return err
		}
		for _, a := range out.AccountAssignments {
			principalID := aws.ToString(a.PrincipalId)
			switch a.PrincipalType {
			case ssotypes.PrincipalTypeGroup:
				assignments.Group[principalID] = append(assignments.Group[principalID], accountID)
			case ssotypes.PrincipalTypeUser:
				assignments.User[principalID] = append(assignments.User[principalID], accountID)
			}
		}
		if out.NextToken == nil {
			return nil
		}
		nextToken = out.NextToken
	}
}

// identifyGroupOwners marks a user as owner of a group when the user's own
// account assignments overlap the group's. That overlap is how institution
// operators are provisioned: direct assignments on the accounts their
// group manages.
func identifyGroupOwners(users map[string]directoryUser, groups map[string]directoryGroup, assignments assignmentSet) map[string][]string {
	owners := make(map[string][]string)
	for groupID, groupAccounts := range assignments.Group {
		if _, ok := groups[groupID]; !ok {
			continue
		}
		accountSet := make(map[string]bool, len(groupAccounts))
		for _, accountID := range groupAccounts {
			accountSet[accountID] = true
		}
		var groupOwners []string
		for userID, userAccounts := range assignments.User {
			if _, ok := users[userID]; !ok {
				continue
			}
			for _, accountID := range userAccounts {
				if accountSet[accountID] {
					groupOwners = append(groupOwners, userID)
					break
				}
			}
		}
		sort.Strings(groupOwners)
		owners[groupID] = groupOwners
	}
	return owners
}

// buildHierarchy arranges the directory into root users (neither members
// nor owners of any group) and owner-attributed groups, both sorted by
// display name.
func buildHierarchy(users map[string]directoryUser, groups map[string]directoryGroup, assignments assignmentSet, owners map[string][]string) map[string]any {
	ownerSet := make(map[string]bool)
	for _, ownerList := range owners {
		for _, id := range ownerList {
			ownerSet[id] = true
		}
	}
	memberSet := make(map[string]bool)
	for _, group := range groups {
		for _, id := range group.Members {
			memberSet[id] = true
		}
	}

	rootUsers := make([]map[string]any, 0, len(users))
	for id, user := range users {
		if ownerSet[id] || memberSet[id] {
			continue
		}
		accounts := assignments.User[id]
		var accountIDString any
		if len(accounts) > 0 {
			sorted := append([]string(nil), accounts...)
			sort.Strings(sorted)
			accountIDString = strings.Join(sorted, ",")
		}
		email, emailStatus := user.primaryEmail()
		rootUsers = append(rootUsers, map[string]any{
			"user_id":           id,
			"display_name":      user.DisplayName,
			"username":          user.UserName,
			"email":             email,
			"email_status":      emailStatus,
			"account_ids":       stringList(accounts),
			"account_id_string": accountIDString,
			"status":            userStatus(user),
		})
	}
	sort.Slice(rootUsers, func(i, j int) bool {
		return rootUsers[i]["display_name"].(string) < rootUsers[j]["display_name"].(string)
	})

	groupHierarchy := make([]map[string]any, 0, len(groups))
	for groupID, group := range groups {
		groupOwners, ok := owners[groupID]
		if !ok {
			continue
		}

		ownersList := make([]map[string]any, 0, len(groupOwners))
		ownedBy := make(map[string]bool, len(groupOwners))
		for _, ownerID := range groupOwners {
			owner, ok := users[ownerID]
			if !ok {
				continue
			}
			ownedBy[ownerID] = true
			email, emailStatus := owner.primaryEmail()
			ownersList = append(ownersList, map[string]any{
				"user_id":      ownerID,
				"display_name": owner.DisplayName,
				"username":     owner.UserName,
				"email":        email,
				"email_status": emailStatus,
				"account_ids":  stringList(assignments.User[ownerID]),
				"status":       userStatus(owner),
				"is_owner":     true,
			})
		}
		sortByDisplayName(ownersList)

		membersList := make([]map[string]any, 0, len(group.Members))
		for _, memberID := range group.Members {
			if ownedBy[memberID] {
				continue
			}
			member, ok := users[memberID]
			if !ok {
				continue
			}
			email, emailStatus := member.primaryEmail()
			membersList = append(membersList, map[string]any{
				"user_id":      memberID,
				"display_name": member.DisplayName,
				"username":     member.UserName,
				"email":        email,
				"email_status": emailStatus,
				"account_ids":  []string{},
				"status":       userStatus(member),
				"is_owner":     false,
			})
		}
		sortByDisplayName(membersList)

		groupHierarchy = append(groupHierarchy, map[string]any{
			"group_id":    groupID,
			"group_name":  group.DisplayName,
			"description": group.Description,
			"account_ids": stringList(assignments.Group[groupID]),
			"owners":      ownersList,
			"members":     membersList,
		})
	}
	sort.Slice(groupHierarchy, func(i, j int) bool {
		return groupHierarchy[i]["group_name"].(string) < groupHierarchy[j]["group_name"].(string)
	})

	return map[string]any{
		"root_users": rootUsers,
		"groups":     groupHierarchy,
	}
}

func sortByDisplayName(list []map[string]any) {
	sort.Slice(list, func(i, j int) bool {
		return list[i]["display_name"].(string) < list[j]["display_name"].(string)
	})
}

func userStatus(u directoryUser) string {
	if u.Active {
		return "Enabled"
	}
	return "Disabled"
}

func stringList(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func errText(err error) string {
	if err == nil {
		return "empty response"
	}
	return err.Error()
}

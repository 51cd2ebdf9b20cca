// Package users implements the Identity Center tools: the get_users
// directory listing and the gated verify_email / reset_password identity
// operations.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
	"github.com/grnet/mcp-aws-orgs/internal/server"
	"github.com/grnet/mcp-aws-orgs/internal/tools"
)

// handleGetUsers lists the institution's Identity Center directory as a
// hierarchy of root users and owner-attributed groups.
func handleGetUsers(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
	institution := tools.OptionalString(request, "institution")
	roleFilter := tools.OptionalString(request, "role_filter")
	includeGroups := tools.OptionalBool(request, "include_groups", true)
	includeAssignments := tools.OptionalBool(request, "include_assignments", true)

	bundle, err := sc.Registry().Bundle(ctx, institution)
	if err != nil {
		return nil, err
	}

	identityStoreID, instanceArn, err := ssoInstance(ctx, bundle.SSOAdmin, institution)
	if err != nil {
		return nil, err
	}

	directory, err := fetchUsers(ctx, bundle.IdentityStore, identityStoreID)
	if err != nil {
		return nil, err
	}

	groups := map[string]directoryGroup{}
	if includeGroups {
		groups, err = fetchGroups(ctx, sc, bundle.IdentityStore, identityStoreID)
		if err != nil {
			return nil, err
		}
	}

	assignments := assignmentSet{User: map[string][]string{}, Group: map[string][]string{}}
	if includeAssignments {
		assignments = fetchAssignments(ctx, sc, bundle.SSOAdmin, instanceArn)
	}

	owners := map[string][]string{}
	if includeGroups {
		owners = identifyGroupOwners(directory, groups, assignments)
	}
	hierarchy := buildHierarchy(directory, groups, assignments, owners)

	if roleFilter != "" {
		hierarchy = filterHierarchy(hierarchy, assignments, roleFilter)
	}

	rootUsers := hierarchy["root_users"].([]map[string]any)
	groupHierarchy := hierarchy["groups"].([]map[string]any)
	totalUsers := len(rootUsers)
	for _, group := range groupHierarchy {
		totalUsers += len(group["owners"].([]map[string]any)) + len(group["members"].([]map[string]any))
	}

	return map[string]any{
		"institution":     institution,
		"sso_instance_id": identityStoreID,
		"users":           hierarchy,
		"summary": map[string]any{
			"total_users":          totalUsers,
			"total_groups":         len(groupHierarchy),
			"total_assignments":    len(assignments.User) + len(assignments.Group),
			"role_filter_applied":  roleFilter != "",
			"groups_included":      includeGroups,
			"assignments_included": includeAssignments,
		},
	}, nil
}

// filterHierarchy keeps only principals whose account assignments mention
// the filter string.
func filterHierarchy(hierarchy map[string]any, assignments assignmentSet, roleFilter string) map[string]any {
	needle := strings.ToLower(roleFilter)

	var filteredUsers []map[string]any
	for _, user := range hierarchy["root_users"].([]map[string]any) {
		accounts := assignments.User[user["user_id"].(string)]
		if strings.Contains(strings.ToLower(strings.Join(accounts, ",")), needle) {
			filteredUsers = append(filteredUsers, user)
		}
	}

	var filteredGroups []map[string]any
	for _, group := range hierarchy["groups"].([]map[string]any) {
		accounts := assignments.Group[group["group_id"].(string)]
		if strings.Contains(strings.ToLower(strings.Join(accounts, ",")), needle) {
			filteredGroups = append(filteredGroups, group)
		}
	}

	if filteredUsers == nil {
		filteredUsers = []map[string]any{}
	}
	if filteredGroups == nil {
		filteredGroups = []map[string]any{}
	}
	return map[string]any{"root_users": filteredUsers, "groups": filteredGroups}
}

// findUserByIdentifier resolves a free-form identifier against the
// directory: case-insensitive substring of email, display name or username,
// or an exact user ID.
func findUserByIdentifier(ctx context.Context, bundle *awsapi.Bundle, identityStoreID, identifier string) (map[string]any, error) {
	directory, err := fetchUsers(ctx, bundle.IdentityStore, identityStoreID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(identifier)
	for id, user := range directory {
		email, _ := user.primaryEmail()
		if id == identifier ||
			strings.Contains(strings.ToLower(email), needle) ||
			strings.Contains(strings.ToLower(user.DisplayName), needle) ||
			strings.Contains(strings.ToLower(user.UserName), needle) {
			return map[string]any{
				"user_id":      id,
				"display_name": user.DisplayName,
				"email":        email,
				"username":     user.UserName,
			}, nil
		}
	}
	return nil, nil
}

// identityOpsClient builds the gated identity-operations client with the
// institution's credentials. The dispatcher has already verified the
// capability is present.
func identityOpsClient(sc *server.ServerContext, institution, ssoRegion string) (awsapi.IdentityOps, error) {
	factory := sc.IdentityOps()
	if factory == nil {
		return nil, envelope.Errorf(envelope.KindCapabilityUnavailable,
			"identity operations are not available in this build")
	}
	cred, err := sc.Store().Lookup(institution)
	if err != nil {
		return nil, err
	}
	return factory(cred.AccessKeyID, cred.SecretAccessKey, ssoRegion)
}

// resolveTargetUser turns the user_id / user_identifier pair into a
// concrete user ID, searching the directory when only an identifier is
// given.
func resolveTargetUser(ctx context.Context, bundle *awsapi.Bundle, identityStoreID, institution string, request mcp.CallToolRequest) (userID string, userInfo map[string]any, err error) {
	userID = tools.OptionalString(request, "user_id")
	identifier := tools.OptionalString(request, "user_identifier")
	if userID == "" && identifier == "" {
		return "", nil, envelope.Errorf(envelope.KindInvalidArgument,
			"either user_id or user_identifier is required")
	}
	if userID != "" {
		return userID, nil, nil
	}
	userInfo, err = findUserByIdentifier(ctx, bundle, identityStoreID, identifier)
	if err != nil {
		return "", nil, err
	}
	if userInfo == nil {
		return "", nil, envelope.Errorf(envelope.KindInvalidArgument,
			"user %q not found in institution %q", identifier, institution)
	}
	return userInfo["user_id"].(string), userInfo, nil
}

// handleVerifyEmail triggers an email verification for one directory user.
func handleVerifyEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
	institution := tools.OptionalString(request, "institution")

	bundle, err := sc.Registry().Bundle(ctx, institution)
	if err != nil {
		return nil, err
	}
	identityStoreID, _, err := ssoInstance(ctx, bundle.SSOAdmin, institution)
	if err != nil {
		return nil, err
	}

	userID, userInfo, err := resolveTargetUser(ctx, bundle, identityStoreID, institution, request)
	if err != nil {
		return nil, err
	}

	ops, err := identityOpsClient(sc, institution, bundle.SSORegion)
	if err != nil {
		return nil, err
	}
	response, err := ops.VerifyEmail(ctx, identityStoreID, userID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"institution":     institution,
		"user_id":         userID,
		"user_identifier": tools.OptionalString(request, "user_identifier"),
		"operation":       "verify_email",
		"aws_response":    response,
		"message":         fmt.Sprintf("Email verification requested for user %s", userID),
		"user_info":       userInfo,
	}, nil
}

// handleResetPassword resets a directory user's password, either by
// sending a reset email or by returning a one-time password.
func handleResetPassword(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
	institution := tools.OptionalString(request, "institution")
	mode := tools.OptionalString(request, "mode")
	if mode == "" {
		mode = "EMAIL"
	}
	mode = strings.ToUpper(mode)
	if mode != "EMAIL" && mode != "OTP" {
		return nil, envelope.Errorf(envelope.KindInvalidArgument,
			"mode must be EMAIL or OTP, got %q", mode)
	}

	bundle, err := sc.Registry().Bundle(ctx, institution)
	if err != nil {
		return nil, err
	}
	identityStoreID, _, err := ssoInstance(ctx, bundle.SSOAdmin, institution)
	if err != nil {
		return nil, err
	}

	userID, userInfo, err := resolveTargetUser(ctx, bundle, identityStoreID, institution, request)
	if err != nil {
		return nil, err
	}

	ops, err := identityOpsClient(sc, institution, bundle.SSORegion)
	if err != nil {
		return nil, err
	}
	response, err := ops.UpdatePassword(ctx, identityStoreID, userID, mode)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"institution":     institution,
		"user_id":         userID,
		"user_identifier": tools.OptionalString(request, "user_identifier"),
		"operation":       "reset_password",
		"mode":            mode,
		"aws_response":    response,
		"message":         fmt.Sprintf("Password reset (%s) requested for user %s", mode, userID),
		"user_info":       userInfo,
	}, nil
}

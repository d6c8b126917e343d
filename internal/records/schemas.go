package records

// Schemas for the four journaling kinds. Wire names follow the hosted
// record store; aliases accept the application's field names.
var (
	MemorySchema = NewSchema(KindMemory,
		Field{Name: "Name", Label: "Title", Aliases: []string{"title", "name"}},
		Field{Name: "content", Label: "Content"},
		Field{Name: "type", Label: "Type"},
		Field{Name: "mood", Label: "Mood"},
		Field{Name: "timestamp", Label: "Timestamp", Type: TypeTime, CreateOnly: true},
		Field{Name: "reactions", Label: "Reactions", Type: TypeList},
		Field{Name: "Tags", Label: "Tags", Type: TypeList, Aliases: []string{"tags"}},
		Field{Name: "userId", Label: "User", Type: TypeInt},
	)

	CapsuleSchema = NewSchema(KindCapsule,
		Field{Name: "Name", Label: "Title", Aliases: []string{"title", "name"}},
		Field{Name: "message", Label: "Message"},
		Field{Name: "unlockDate", Label: "Unlock Date", Type: TypeTime},
		Field{Name: "recipientEmail", Label: "Recipient Email"},
		Field{Name: "isUnlocked", Label: "Unlocked", Type: TypeBool},
		Field{Name: "createdAt", Label: "Created At", Type: TypeTime, CreateOnly: true},
		Field{Name: "Tags", Label: "Tags", Type: TypeList, Aliases: []string{"tags"}},
		Field{Name: "userId", Label: "User", Type: TypeInt},
	)

	ChatMessageSchema = NewSchema(KindChatMessage,
		Field{Name: "Name", Label: "Title", Aliases: []string{"title", "name"}},
		Field{Name: "content", Label: "Content"},
		Field{Name: "role", Label: "Role", CreateOnly: true},
		Field{Name: "timestamp", Label: "Timestamp", Type: TypeTime, CreateOnly: true},
		Field{Name: "contextMemoryIds", Label: "Context Memories", Type: TypeIntList},
		Field{Name: "Tags", Label: "Tags", Type: TypeList, Aliases: []string{"tags"}},
		Field{Name: "userId", Label: "User", Type: TypeInt},
	)

	UserSchema = NewSchema(KindUser,
		Field{Name: "Name", Label: "Name", Aliases: []string{"name"}},
		Field{Name: "email", Label: "Email"},
		Field{Name: "streakCount", Label: "Streak Count", Type: TypeInt},
		Field{Name: "xpPoints", Label: "XP Points", Type: TypeInt},
		Field{Name: "level", Label: "Level", Type: TypeInt},
		Field{Name: "badges", Label: "Badges", Type: TypeList},
		Field{Name: "subscriptionStatus", Label: "Subscription Status"},
		Field{Name: "dailyChatCount", Label: "Daily Chat Count", Type: TypeInt},
		Field{Name: "lastActive", Label: "Last Active", Type: TypeTime},
	)
)

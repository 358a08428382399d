package roster

// ReplyKind tells the renderer which message to produce.
type ReplyKind int

const (
	// ReplyNone means nothing is sent; used for dropped button presses.
	ReplyNone ReplyKind = iota
	ReplyHelp
	ReplyAskName
	ReplyNameRequired
	ReplyAskUsername
	ReplyAskCategory
	ReplyUseCategoryButtons
	ReplyAskTags
	ReplyTagsRequired
	ReplyRegistered
	ReplyIncomplete
	ReplyCancelled
	ReplyConfirmDelete
	ReplyUseDeleteButtons
	ReplyDeleted
	ReplyNothingToDelete
	ReplyDeleteCancelled
	ReplyViewCategories
	ReplyCategoryRecords
	ReplyDirectory
	ReplyProfile
	ReplyNoProfile
	ReplyUnavailable
)

var replyNames = [...]string{
	ReplyNone:               "none",
	ReplyHelp:               "help",
	ReplyAskName:            "ask_name",
	ReplyNameRequired:       "name_required",
	ReplyAskUsername:        "ask_username",
	ReplyAskCategory:        "ask_category",
	ReplyUseCategoryButtons: "use_category_buttons",
	ReplyAskTags:            "ask_tags",
	ReplyTagsRequired:       "tags_required",
	ReplyRegistered:         "registered",
	ReplyIncomplete:         "incomplete",
	ReplyCancelled:          "cancelled",
	ReplyConfirmDelete:      "confirm_delete",
	ReplyUseDeleteButtons:   "use_delete_buttons",
	ReplyDeleted:            "deleted",
	ReplyNothingToDelete:    "nothing_to_delete",
	ReplyDeleteCancelled:    "delete_cancelled",
	ReplyViewCategories:     "view_categories",
	ReplyCategoryRecords:    "category_records",
	ReplyDirectory:          "directory",
	ReplyProfile:            "profile",
	ReplyNoProfile:          "no_profile",
	ReplyUnavailable:        "unavailable",
}

// String implements fmt.Stringer.
func (k ReplyKind) String() string {
	if k >= 0 && int(k) < len(replyNames) {
		return replyNames[k]
	}
	return "unknown"
}

// Reply describes the response to one event. Only the fields relevant to
// Kind are set.
type Reply struct {
	Kind ReplyKind
	// Edit asks the renderer to replace the message whose button was
	// pressed instead of sending a new one.
	Edit bool

	Category Category
	Record   *Record
	Records  []Record
	Groups   []Group
}

package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")

	// Аутентификация и права
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
	ErrPasswordTooShort     = errors.New("password is too short")

	// Университеты и игроки
	ErrUniversityNotFound     = errors.New("university not found")
	ErrUniversityNameConflict = errors.New("a university with this name already exists")
	ErrUniversityInUse        = errors.New("university is referenced by other records")
	ErrInvalidZone            = errors.New("zone must be 'North & Central' or 'London & South'")
	ErrPlayerNotFound         = errors.New("player not found")
	ErrImportEmpty            = errors.New("no players to import")
	ErrLogoUploadDisabled     = errors.New("logo uploads are not configured")
	ErrUnsupportedFileType    = errors.New("unsupported file type")

	// Матчи
	ErrMatchNotFound           = errors.New("match not found")
	ErrUnknownSport            = errors.New("unknown sport")
	ErrInvalidScore            = errors.New("invalid score for this sport")
	ErrInvalidMatchStatus      = errors.New("invalid match status")
	ErrInvalidStatusTransition = errors.New("invalid match status transition")
	ErrMatchTeamsMissing       = errors.New("both teams must be known before the match can start")
	ErrMatchResultRequired     = errors.New("a score or an explicit winner is required to complete the match")
	ErrInvalidWinner           = errors.New("winner must be one of the two teams")
	ErrKnockoutDraw            = errors.New("knockout matches cannot end in a draw; provide a winner")
	ErrNextMatchStarted        = errors.New("the following bracket match has already started")
	ErrBracketMatchLocked      = errors.New("bracket matches cannot be edited or deleted individually")
	ErrMatchAlreadyStarted     = errors.New("teams and sport can only change while the match is scheduled")

	// Турниры
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrInvalidFormat          = errors.New("format must be 'single_elimination' or 'round_robin'")
	ErrInvalidLegs            = errors.New("legs must be 1 or 2")
	ErrTournamentStarted      = errors.New("tournament already has started matches")
	ErrStandingsNotApplicable = errors.New("standings are only available for round robin tournaments")

	// Заявки
	ErrRequestNotFound      = errors.New("request not found")
	ErrRequestNotPending    = errors.New("request has already been reviewed")
	ErrRequestDuplicate     = errors.New("a pending request already exists for this email")
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrInvalidRequestStatus = errors.New("invalid request status")
)

/*
   Copyright (c) 2020, btnmasher
   All rights reserved.

   Redistribution and use in source and binary forms, with or without modification, are permitted provided that
   the following conditions are met:

   1. Redistributions of source code must retain the above copyright notice, this list of conditions and the
      following disclaimer.

   2. Redistributions in binary form must reproduce the above copyright notice, this list of conditions and
      the following disclaimer in the documentation and/or other materials provided with the distribution.

   3. Neither the name of the copyright holder nor the names of its contributors may be used to endorse or
      promote products derived from this software without specific prior written permission.

   THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED
   WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A
   PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE LIABLE FOR
   ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED
   TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION)
   HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
   NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
   POSSIBILITY OF SUCH DAMAGE.
*/

// Package numerics defines the RFC 1459/2812 and IRCv3 numeric reply
// codes required by spec section 6.3. The constant table follows the
// naming convention of btnmasher-dircd/numerics.go (Reply<Name>)
// extended with the SASL/extban ranges the distilled spec adds.
package numerics

const (
	RplWelcome          uint16 = 1
	RplYourHost         uint16 = 2
	RplCreated          uint16 = 3
	RplMyInfo           uint16 = 4
	RplISupport         uint16 = 5
	RplUserModeIs       uint16 = 221
	RplUsersOnline      uint16 = 251
	RplOpersOnline      uint16 = 252
	RplUnknownConns     uint16 = 253
	RplChannelCount     uint16 = 254
	RplUsersOnlineLocal uint16 = 255
	RplAway             uint16 = 301
	RplUserHost         uint16 = 302
	RplIsOn             uint16 = 303
	RplUnAway           uint16 = 305
	RplNowAway          uint16 = 306
	RplWhoisUser        uint16 = 311
	RplWhoisServer      uint16 = 312
	RplWhoisOperator    uint16 = 313
	RplWhoWasUser       uint16 = 314
	RplEndOfWho         uint16 = 315
	RplWhoisIdle        uint16 = 317
	RplEndOfWhois       uint16 = 318
	RplWhoisChannels    uint16 = 319
	RplListStart        uint16 = 321
	RplList             uint16 = 322
	RplListEnd          uint16 = 323
	RplChannelModeIs    uint16 = 324
	RplCreationTime     uint16 = 329
	RplWhoisAccount     uint16 = 330
	RplNoTopic          uint16 = 331
	RplTopic            uint16 = 332
	RplTopicWhoTime     uint16 = 333
	RplInviting         uint16 = 341
	RplWhoReply         uint16 = 352
	RplNamReply         uint16 = 353
	RplEndOfNames       uint16 = 366
	RplBanList          uint16 = 367
	RplEndOfBanList     uint16 = 368
	RplEndOfWhoWas      uint16 = 369
	RplMotd             uint16 = 372
	RplMotdStart        uint16 = 375
	RplEndOfMotd        uint16 = 376
	RplYoureOper        uint16 = 381
	RplTime             uint16 = 391
	RplQuietList        uint16 = 728
	RplEndOfQuietList   uint16 = 729
	RplStartTLS         uint16 = 670
	ErrStartTLS         uint16 = 691

	ErrNoSuchNick       uint16 = 401
	ErrNoSuchServer     uint16 = 402
	ErrNoSuchChannel    uint16 = 403
	ErrCannotSendToChan uint16 = 404
	ErrTooManyChannels  uint16 = 405
	ErrWasNoSuchNick    uint16 = 406
	ErrTooManyTargets   uint16 = 407
	ErrNoOrigin         uint16 = 409
	ErrInvalidCapCmd    uint16 = 410
	ErrNoRecipient      uint16 = 411
	ErrNoTextToSend     uint16 = 412
	ErrUnknownCommand   uint16 = 421
	ErrNoMotd           uint16 = 422
	ErrNoNicknameGiven  uint16 = 431
	ErrErroneousNick    uint16 = 432
	ErrNicknameInUse    uint16 = 433
	ErrNickCollision    uint16 = 436
	ErrUserNotInChannel uint16 = 441
	ErrNotOnChannel     uint16 = 442
	ErrUserOnChannel    uint16 = 443
	ErrNotRegistered    uint16 = 451
	ErrNeedMoreParams   uint16 = 461
	ErrAlreadyReg       uint16 = 462
	ErrPasswdMismatch   uint16 = 464
	ErrYoureBannedCreep uint16 = 465
	ErrChannelIsFull    uint16 = 471
	ErrUnknownMode      uint16 = 472
	ErrInviteOnlyChan   uint16 = 473
	ErrBannedFromChan   uint16 = 474
	ErrBadChannelKey    uint16 = 475
	ErrBadChanMask      uint16 = 476
	ErrNoChanModes      uint16 = 477
	ErrSecureOnlyChan   uint16 = 489
	ErrNoPrivileges     uint16 = 481
	ErrChanOPrivsNeeded uint16 = 482
	ErrRestricted       uint16 = 484
	ErrOperOnly         uint16 = 520

	RplLoggedIn     uint16 = 900
	RplLoggedOut    uint16 = 901
	RplSaslSuccess  uint16 = 903
	ErrSaslFail     uint16 = 904
	ErrSaslTooLong  uint16 = 905
	ErrSaslAborted  uint16 = 906
	ErrSaslAlready  uint16 = 907
	RplSaslMechs    uint16 = 908
	RplExtbanSyntax uint16 = 936
)
